package ratelimit

import (
	"testing"
	"time"

	"github.com/comigor/bertbot/internal/config"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) *Limiter {
	t.Helper()
	l := New(cfg)
	t.Cleanup(l.Close)
	return l
}

func TestCheckMessage_WindowBudget(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{MaxMessagesPerWindow: 3, WindowSeconds: 60})

	for i := 0; i < 3; i++ {
		allowed, _ := l.CheckMessage("1.2.3.4")
		require.True(t, allowed, "message %d should be allowed", i+1)
	}

	allowed, retryAfter := l.CheckMessage("1.2.3.4")
	require.False(t, allowed)
	require.Greater(t, retryAfter, 0)
	require.LessOrEqual(t, retryAfter, 60)
}

func TestCheckMessage_IndependentIdentifiers(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{MaxMessagesPerWindow: 1, WindowSeconds: 60})

	allowed, _ := l.CheckMessage("a")
	require.True(t, allowed)
	allowed, _ = l.CheckMessage("b")
	require.True(t, allowed)
	allowed, _ = l.CheckMessage("a")
	require.False(t, allowed)
}

func TestCheckMessage_WindowReset(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{MaxMessagesPerWindow: 1, WindowSeconds: 60})

	now := time.Now()
	l.now = func() time.Time { return now }

	allowed, _ := l.CheckMessage("a")
	require.True(t, allowed)
	allowed, _ = l.CheckMessage("a")
	require.False(t, allowed)

	// Advance past the window; the next message opens a fresh one.
	now = now.Add(61 * time.Second)
	allowed, _ = l.CheckMessage("a")
	require.True(t, allowed)
}

func TestConnectionGauge(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{MaxConnectionsPerIP: 2})

	require.True(t, l.TrackConnection("1.2.3.4"))
	require.True(t, l.TrackConnection("1.2.3.4"))
	require.False(t, l.TrackConnection("1.2.3.4"))

	l.ReleaseConnection("1.2.3.4")
	require.True(t, l.TrackConnection("1.2.3.4"))
}

func TestReleaseConnection_DropsZeroEntries(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{})

	require.True(t, l.TrackConnection("1.2.3.4"))
	l.ReleaseConnection("1.2.3.4")

	stats := l.Stats()
	require.Zero(t, stats.ActiveConnections)
	require.Zero(t, stats.UniqueIPs)
}

func TestCleanup_SweepsElapsedWindows(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{MaxMessagesPerWindow: 5, WindowSeconds: 60})

	now := time.Now()
	l.now = func() time.Time { return now }

	l.CheckMessage("a")
	l.CheckMessage("b")
	require.Equal(t, 2, l.Stats().TrackedIdentifiers)

	now = now.Add(2 * time.Minute)
	l.cleanup()
	require.Zero(t, l.Stats().TrackedIdentifiers)
}

func TestStats(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{})

	l.CheckMessage("a")
	l.TrackConnection("1.1.1.1")
	l.TrackConnection("1.1.1.1")
	l.TrackConnection("2.2.2.2")

	stats := l.Stats()
	require.Equal(t, 1, stats.TrackedIdentifiers)
	require.Equal(t, 3, stats.ActiveConnections)
	require.Equal(t, 2, stats.UniqueIPs)
}
