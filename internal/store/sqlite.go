package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    ts              TEXT NOT NULL,
    user_lang       TEXT,
    user_text       TEXT NOT NULL,
    assistant_think TEXT,
    assistant_reply TEXT NOT NULL
)`

// SQLite is the default store. Appends are serialized.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, t Turn) error {
	t = t.normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (ts, user_lang, user_text, assistant_think, assistant_reply)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(t.Timestamp), t.UserLanguage, t.UserText, t.Reasoning, t.AssistantReply)
	if err != nil {
		return fmt.Errorf("sqlite store: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest turns, oldest first.
func (s *SQLite) Recent(ctx context.Context, n int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, user_lang, user_text, assistant_think, assistant_reply
		FROM (SELECT * FROM conversations ORDER BY id DESC LIMIT ?)
		ORDER BY id`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: recent: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var (
			t           Turn
			ts          string
			lang, think sql.NullString
		)
		if err := rows.Scan(&t.ID, &ts, &lang, &t.UserText, &think, &t.AssistantReply); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		if t.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		t.UserLanguage, t.Reasoning = lang.String, think.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
