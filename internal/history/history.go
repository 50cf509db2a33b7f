// Package history keeps an additive SQLite transcript of every turn,
// for auditing. It is never read on the message-handling path. If the
// database cannot be opened or written, the log degrades to memory.
package history

import (
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/logger"
)

const defaultDBPath = "history.db"

// Log is the transcript writer. The zero value is unusable; call Open.
type Log struct {
	mu       sync.Mutex
	fallback []Message // in-memory fallback when sqlite is unavailable
	db       *sql.DB
}

// Open prepares the transcript database, creating the table on first
// use. Open never fails: sqlite trouble is logged and the transcript
// degrades to an in-memory slice.
func Open(cfg config.HistoryConfig) *Log {
	l := &Log{}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return l
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		created_at DATETIME
	);`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		db.Close()
		return l
	}

	l.db = db
	logger.L.Info("sqlite history DB initialized", "path", dbPath)
	return l
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Save appends a message to the transcript. Failures are logged, never
// returned: the transcript must not block a reply.
func (l *Log) Save(msg Message) {
	if l.db != nil {
		_, err := l.db.Exec(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
		if err == nil {
			return
		}
		logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
	}

	l.mu.Lock()
	l.fallback = append(l.fallback, msg)
	l.mu.Unlock()
}

// List returns all messages of a session in chronological order.
func (l *Log) List(sessionID string) []Message {
	var out []Message
	if l.db != nil {
		rows, err := l.db.Query(`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var m Message
				if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err == nil {
					out = append(out, m)
				}
			}
			return out
		}
		logger.L.Warn("sqlite history query failed; reading memory fallback", "error", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.fallback {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}
