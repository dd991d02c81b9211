package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type turnStore interface {
	Append(ctx context.Context, t Turn) error
	Recent(ctx context.Context, n int) ([]Turn, error)
	Close() error
}

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "assistant.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAppendAndRecent(t *testing.T, s turnStore) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 30, 15, 987_000_000, time.FixedZone("EET", 2*3600))

	turns := []Turn{
		{Timestamp: at, UserLanguage: "UK", UserText: "Привіт\n\n[EN]\nHi", Reasoning: "greeting", AssistantReply: "Вітаю\n\n[EN]\nHello"},
		{Timestamp: at.Add(time.Minute), UserLanguage: "en", UserText: "2+2?", AssistantReply: "4"},
		{Timestamp: at.Add(2 * time.Minute), UserLanguage: "en", UserText: "thanks", AssistantReply: "You're welcome"},
	}
	for _, turn := range turns {
		if err := s.Append(ctx, turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d turns, want 2", len(got))
	}
	if got[0].UserText != "2+2?" || got[1].UserText != "thanks" {
		t.Fatalf("unexpected order: %q, %q", got[0].UserText, got[1].UserText)
	}
	if got[0].Reasoning != "" {
		t.Errorf("reasoning = %q, want empty", got[0].Reasoning)
	}

	all, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	first := all[0]
	if want := time.Date(2025, 3, 1, 10, 30, 15, 0, time.UTC); !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", first.Timestamp, want)
	}
	if first.UserLanguage != "uk" {
		t.Errorf("language = %q, want uk", first.UserLanguage)
	}
	if first.AssistantReply != "Вітаю\n\n[EN]\nHello" || first.Reasoning != "greeting" {
		t.Errorf("unexpected first turn %+v", first)
	}
}

func TestSQLiteAppendAndRecent(t *testing.T) {
	testAppendAndRecent(t, openSQLite(t))
}

func TestSQLiteTimestampFormat(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	if err := s.Append(ctx, Turn{Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC), UserText: "a", AssistantReply: "b"}); err != nil {
		t.Fatal(err)
	}

	var ts string
	if err := s.db.QueryRowContext(ctx, "SELECT ts FROM conversations").Scan(&ts); err != nil {
		t.Fatal(err)
	}
	if ts != "2025-01-02T03:04:05Z" {
		t.Fatalf("ts = %q", ts)
	}
}

func TestSQLiteConcurrentAppend(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Append(ctx, Turn{UserText: fmt.Sprint(i), AssistantReply: "ok"}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d turns, want 20", len(got))
	}
}

func TestSQLiteReopenKeepsTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.sqlite3")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, Turn{UserText: "q", AssistantReply: "a"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.Recent(ctx, 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, err %v", got, err)
	}
}

func TestPostgresAppendAndRecent(t *testing.T) {
	dsn := os.Getenv("VOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOX_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration test")
	}

	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	if _, err := p.pool.Exec(ctx, "TRUNCATE conversations"); err != nil {
		t.Fatal(err)
	}
	testAppendAndRecent(t, p)
}
