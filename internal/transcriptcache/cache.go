// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcriptcache keeps fetched transcripts in SQLite so that
// reprocessing a date range does not ask the meeting source for the same
// transcript twice.
package transcriptcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one cached transcript.
type Entry struct {
	MeetingID string
	Text      string
	FetchedAt time.Time
}

// Store is a SQLite-backed transcript cache.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path. ":memory:" is accepted
// for tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening transcript cache: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
		meeting_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached transcript for meetingID. ok is false on a miss.
func (s *Store) Get(ctx context.Context, meetingID string) (Entry, bool, error) {
	var (
		e       Entry
		fetched string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT meeting_id, text, fetched_at FROM transcripts WHERE meeting_id = ?`, meetingID,
	).Scan(&e.MeetingID, &e.Text, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading transcript %s: %w", meetingID, err)
	}
	e.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
	return e, true, nil
}

// Put stores or replaces the transcript for meetingID.
func (s *Store) Put(ctx context.Context, meetingID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (meeting_id, text, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET text = excluded.text, fetched_at = excluded.fetched_at`,
		meetingID, text, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing transcript %s: %w", meetingID, err)
	}
	return nil
}

// Count returns the number of cached transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM transcripts`).Scan(&n)
	return n, err
}
