// Package ratelimit provides per-sender message rate limiting and
// per-IP connection caps for the gateway.
package ratelimit

import (
	"sync"
	"time"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/logger"
)

const (
	defaultMaxMessages    = 60
	defaultWindow         = time.Minute
	defaultMaxConnections = 5
	sweepInterval         = time.Minute
)

type messageEntry struct {
	count   int
	resetAt time.Time
}

// Limiter tracks message counts in fixed windows per identifier and a
// gauge of live connections per IP.
type Limiter struct {
	mu          sync.Mutex
	messages    map[string]*messageEntry
	connections map[string]int

	maxMessages    int
	window         time.Duration
	maxConnections int

	now  func() time.Time
	done chan struct{}
}

func New(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{
		messages:       make(map[string]*messageEntry),
		connections:    make(map[string]int),
		maxMessages:    defaultMaxMessages,
		window:         defaultWindow,
		maxConnections: defaultMaxConnections,
		now:            time.Now,
		done:           make(chan struct{}),
	}
	if cfg.MaxMessagesPerWindow > 0 {
		l.maxMessages = cfg.MaxMessagesPerWindow
	}
	if cfg.WindowSeconds > 0 {
		l.window = time.Duration(cfg.WindowSeconds) * time.Second
	}
	if cfg.MaxConnectionsPerIP > 0 {
		l.maxConnections = cfg.MaxConnectionsPerIP
	}

	go l.sweeper()
	return l
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	close(l.done)
}

// CheckMessage counts one message for the identifier. When the window
// budget is spent it reports retryAfter, the whole seconds until the
// window resets.
func (l *Limiter) CheckMessage(identifier string) (allowed bool, retryAfter int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.messages[identifier]
	if !ok || !now.Before(entry.resetAt) {
		l.messages[identifier] = &messageEntry{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	if entry.count >= l.maxMessages {
		retryAfter = int((entry.resetAt.Sub(now) + time.Second - 1) / time.Second)
		logger.L.Warn("Rate limit exceeded",
			"identifier", identifier,
			"count", entry.count,
			"limit", l.maxMessages,
			"retryAfter", retryAfter)
		return false, retryAfter
	}

	entry.count++
	return true, 0
}

// TrackConnection registers one connection for ip, refusing it when the
// per-IP cap is reached.
func (l *Limiter) TrackConnection(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.connections[ip]
	if current >= l.maxConnections {
		logger.L.Warn("Connection limit exceeded", "ip", ip, "current", current, "limit", l.maxConnections)
		return false
	}
	l.connections[ip] = current + 1
	return true
}

// ReleaseConnection unregisters one connection for ip.
func (l *Limiter) ReleaseConnection(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.connections[ip]
	if current <= 1 {
		delete(l.connections, ip)
	} else {
		l.connections[ip] = current - 1
	}
}

// Stats reports gauge values for monitoring.
type Stats struct {
	TrackedIdentifiers int `json:"trackedIdentifiers"`
	ActiveConnections  int `json:"activeConnections"`
	UniqueIPs          int `json:"uniqueIPs"`
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, n := range l.connections {
		total += n
	}
	return Stats{
		TrackedIdentifiers: len(l.messages),
		ActiveConnections:  total,
		UniqueIPs:          len(l.connections),
	}
}

func (l *Limiter) sweeper() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup drops message entries whose window has elapsed.
func (l *Limiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, entry := range l.messages {
		if !now.Before(entry.resetAt) {
			delete(l.messages, id)
		}
	}
}
