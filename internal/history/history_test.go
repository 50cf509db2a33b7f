package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/comigor/bertbot/internal/config"

	"github.com/stretchr/testify/require"
)

func TestSaveAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	l := Open(config.HistoryConfig{DBPath: dbPath})
	defer l.Close()

	now := time.Now().UTC().Truncate(time.Second)
	l.Save(Message{SessionID: "discord:alice", Role: "user", Content: "hi", CreatedAt: now})
	l.Save(Message{SessionID: "discord:alice", Role: "assistant", Content: "hello", CreatedAt: now})
	l.Save(Message{SessionID: "slack:bob", Role: "user", Content: "other session", CreatedAt: now})

	msgs := l.List("discord:alice")
	require.Len(t, msgs, 2)
	require.Equal(t, "hi", msgs[0].Content)
	require.Equal(t, "hello", msgs[1].Content)
	require.Equal(t, "user", msgs[0].Role)

	require.Len(t, l.List("slack:bob"), 1)
	require.Empty(t, l.List("nobody"))
}

func TestMemoryFallback(t *testing.T) {
	// An unopenable path forces the in-memory fallback.
	l := Open(config.HistoryConfig{DBPath: filepath.Join(t.TempDir(), "missing", "sub", "x.db")})
	defer l.Close()

	l.Save(Message{SessionID: "s", Role: "user", Content: "hi", CreatedAt: time.Now()})
	msgs := l.List("s")
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Content)
}
