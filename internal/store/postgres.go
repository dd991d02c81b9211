package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS conversations (
    id              BIGSERIAL PRIMARY KEY,
    ts              TEXT NOT NULL,
    user_lang       TEXT,
    user_text       TEXT NOT NULL,
    assistant_think TEXT,
    assistant_reply TEXT NOT NULL
)`

// Postgres stores turns in the same table layout as SQLite. The pool makes
// concurrent appends safe without extra locking.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: create schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Append(ctx context.Context, t Turn) error {
	t = t.normalized()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO conversations (ts, user_lang, user_text, assistant_think, assistant_reply)
		VALUES ($1, $2, $3, $4, $5)`,
		formatTime(t.Timestamp), t.UserLanguage, t.UserText, t.Reasoning, t.AssistantReply)
	if err != nil {
		return fmt.Errorf("postgres store: append: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, n int) ([]Turn, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, ts, COALESCE(user_lang, ''), user_text, COALESCE(assistant_think, ''), assistant_reply
		FROM (SELECT * FROM conversations ORDER BY id DESC LIMIT $1) newest
		ORDER BY id`, n)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Turn, error) {
		var (
			t  Turn
			ts string
		)
		if err := row.Scan(&t.ID, &ts, &t.UserLanguage, &t.UserText, &t.Reasoning, &t.AssistantReply); err != nil {
			return Turn{}, err
		}
		parsed, err := parseTime(ts)
		if err != nil {
			return Turn{}, err
		}
		t.Timestamp = parsed
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent: %w", err)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
