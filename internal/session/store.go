package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"
	"github.com/comigor/bertbot/internal/logger"
)

const (
	defaultTTL        = 24 * time.Hour
	defaultSweepEvery = time.Hour
)

// Session is one user's conversation history on one channel. Identity
// is "channel:userId", so no lookup table is needed.
type Session struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	LastAccessed int64                  `json:"lastAccessed"` // Unix milliseconds
	Messages     []conversation.Message `json:"messages"`
}

// ID builds the session identity for a channel/user pair.
func ID(channel, userID string) string {
	return channel + ":" + userID
}

// Store is a two-tier session cache. The in-memory map is authoritative
// for reads; when a directory is configured every save is mirrored to
// one file per session, encrypted when a secret is set. A background
// sweep evicts idle entries from memory only, so a later load
// re-hydrates from disk.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	dir    string // empty disables persistence
	secret string
	ttl    time.Duration

	done chan struct{}
}

func NewStore(cfg config.SessionsConfig) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		secret:   cfg.Secret,
		ttl:      defaultTTL,
		done:     make(chan struct{}),
	}
	if cfg.Persist {
		s.dir = cfg.Dir
	}
	if cfg.TTLHours > 0 {
		s.ttl = time.Duration(cfg.TTLHours) * time.Hour
	}

	if s.dir != "" && s.secret == "" {
		logger.L.Warn("Session encryption key not configured; sessions will be persisted as plain JSON")
	}

	sweepEvery := defaultSweepEvery
	if cfg.SweepMinutes > 0 {
		sweepEvery = time.Duration(cfg.SweepMinutes) * time.Minute
	}
	go s.janitor(sweepEvery)

	return s
}

// Close stops the background sweep.
func (s *Store) Close() {
	close(s.done)
}

// GetOrCreate returns the session for the channel/user pair, reading
// the disk mirror on a cache miss and creating a fresh session when
// neither tier has one.
func (s *Store) GetOrCreate(channel, userID string) (*Session, error) {
	id := ID(channel, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.lookupLocked(id); sess != nil {
		return sess, nil
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastAccessed: now.UnixMilli(),
		Messages:     []conversation.Message{},
	}
	s.sessions[id] = sess
	if err := s.persist(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load returns the session for id from cache, falling back to the disk
// mirror. The second return is false when neither tier has a record.
func (s *Store) Load(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(id)
	return sess, sess != nil
}

// lookupLocked checks the cache then the disk mirror, refreshing
// lastAccessed on a hit. Callers hold s.mu.
func (s *Store) lookupLocked(id string) *Session {
	if sess, ok := s.sessions[id]; ok {
		sess.LastAccessed = time.Now().UnixMilli()
		return sess
	}
	if sess := s.loadFromDisk(id); sess != nil {
		sess.LastAccessed = time.Now().UnixMilli()
		s.sessions[id] = sess
		return sess
	}
	return nil
}

// Append adds a message to the session and writes it through to disk.
func (s *Store) Append(sess *Session, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess.Messages = append(sess.Messages, conversation.Message{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	sess.UpdatedAt = now
	sess.LastAccessed = now.UnixMilli()
	s.sessions[sess.ID] = sess
	return s.persist(sess)
}

// Save writes the session through to the disk mirror.
func (s *Store) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return s.persist(sess)
}

// Context rebuilds a conversation context from the session history.
func (sess *Session) Context() *conversation.Context {
	ctx := conversation.NewContext()
	for _, m := range sess.Messages {
		ctx.Add(m)
	}
	return ctx
}

// persist writes one file per session. Callers hold s.mu.
func (s *Store) persist(sess *Session) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}

	if s.secret == "" {
		return os.WriteFile(s.plainPath(sess.ID), data, 0o644)
	}

	sealed, err := encrypt(s.secret, data)
	if err != nil {
		return fmt.Errorf("encrypt session %s: %w", sess.ID, err)
	}
	return os.WriteFile(s.encryptedPath(sess.ID), sealed, 0o600)
}

// loadFromDisk reads the mirror for id, preferring the encrypted record
// and falling back to a legacy plain file when decryption is not
// possible. Returns nil when no usable record exists.
func (s *Store) loadFromDisk(id string) *Session {
	if s.dir == "" {
		return nil
	}

	if s.secret != "" {
		if data, err := os.ReadFile(s.encryptedPath(id)); err == nil {
			plain, err := decrypt(s.secret, data)
			if err == nil {
				if sess := unmarshalSession(id, plain); sess != nil {
					return sess
				}
			} else {
				logger.L.Warn("Failed to decrypt session record, trying legacy plain file", "session", id, "error", err)
			}
		}
	}

	data, err := os.ReadFile(s.plainPath(id))
	if err != nil {
		return nil
	}
	return unmarshalSession(id, data)
}

func unmarshalSession(id string, data []byte) *Session {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.L.Warn("Discarding unreadable session record", "session", id, "error", err)
		return nil
	}
	if sess.ID == "" {
		sess.ID = id
	}
	return &sess
}

// encodeID makes a session id filesystem-safe: percent-encode, then
// swap "%" for "_" so the name has no reserved characters at all.
func encodeID(id string) string {
	return strings.ReplaceAll(url.QueryEscape(id), "%", "_")
}

func (s *Store) encryptedPath(id string) string {
	return filepath.Join(s.dir, encodeID(id)+".enc")
}

func (s *Store) plainPath(id string) string {
	return filepath.Join(s.dir, encodeID(id)+".json")
}

// janitor periodically evicts idle sessions from memory. Disk records
// are never removed, so evicted sessions survive a later load.
func (s *Store) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	cutoff := time.Now().Add(-s.ttl).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.LastAccessed < cutoff {
			logger.L.Debug("Evicting idle session from memory", "session", id)
			delete(s.sessions, id)
		}
	}
}
