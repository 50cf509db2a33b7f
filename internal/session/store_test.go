package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T, cfg config.SessionsConfig) *Store {
	t.Helper()
	s := NewStore(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestGetOrCreate_MemoryOnly(t *testing.T) {
	s := newTestStore(t, config.SessionsConfig{})

	sess, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.Equal(t, "discord:alice", sess.ID)
	require.Empty(t, sess.Messages)

	again, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.Same(t, sess, again)
}

func TestAppendPersistsEncrypted(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})

	sess, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, conversation.RoleUser, "hi"))
	require.NoError(t, s.Append(sess, conversation.RoleAssistant, "hello"))

	path := filepath.Join(dir, "discord_3Aalice.enc")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The record on disk must not be readable as plain JSON.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, json.Valid(raw))

	// A fresh store must re-hydrate the session from disk.
	s2 := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})
	loaded, err := s2.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	require.Equal(t, "hi", loaded.Messages[0].Content)
	require.Equal(t, "hello", loaded.Messages[1].Content)
}

func TestPersistPlainWithoutSecret(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir})

	sess, err := s.GetOrCreate("slack", "bob")
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, conversation.RoleUser, "hey"))

	raw, err := os.ReadFile(filepath.Join(dir, "slack_3Abob.json"))
	require.NoError(t, err)
	require.True(t, json.Valid(raw))
}

func TestSaveIdempotence(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})

	sess, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, conversation.RoleUser, "hi"))
	require.NoError(t, s.Save(sess))
	require.NoError(t, s.Save(sess))

	s2 := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})
	loaded, err := s2.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	require.Equal(t, "hi", loaded.Messages[0].Content)
}

func TestLegacyPlainFallback(t *testing.T) {
	dir := t.TempDir()

	// A record written before encryption was configured.
	legacy := Session{
		ID:        "discord:carol",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: "old message", CreatedAt: time.Now()},
		},
	}
	data, err := json.MarshalIndent(legacy, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "discord_3Acarol.json"), data, 0o644))

	s := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})
	loaded, err := s.GetOrCreate("discord", "carol")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	require.Equal(t, "old message", loaded.Messages[0].Content)

	// The next save re-writes the record encrypted.
	require.NoError(t, s.Append(loaded, conversation.RoleAssistant, "new reply"))
	_, err = os.Stat(filepath.Join(dir, "discord_3Acarol.enc"))
	require.NoError(t, err)
}

func TestEvictionKeepsDisk(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, config.SessionsConfig{Persist: true, Dir: dir, Secret: testSecret})

	sess, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, conversation.RoleUser, "hi"))

	// Age the entry past the TTL and sweep.
	sess.LastAccessed = time.Now().Add(-25 * time.Hour).UnixMilli()
	s.evictExpired()

	s.mu.Lock()
	_, cached := s.sessions["discord:alice"]
	s.mu.Unlock()
	require.False(t, cached)

	// The disk copy survives, so the next load re-hydrates.
	loaded, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
}

func TestLoad(t *testing.T) {
	s := newTestStore(t, config.SessionsConfig{})

	_, ok := s.Load("discord:alice")
	require.False(t, ok)

	sess, err := s.GetOrCreate("discord", "alice")
	require.NoError(t, err)

	loaded, ok := s.Load("discord:alice")
	require.True(t, ok)
	require.Same(t, sess, loaded)
}

func TestEncodeID(t *testing.T) {
	require.Equal(t, "discord_3Aalice", encodeID("discord:alice"))
	require.Equal(t, "a_2Fb", encodeID("a/b"))
}
