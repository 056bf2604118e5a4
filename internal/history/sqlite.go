package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimeFormat, s, time.Local)
}

// SQLiteSink mirrors history entries to a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// history table exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode allows concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	// Wait up to 5s for write lock instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// SQLite supports one writer at a time; constrain the pool accordingly
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ddl := `
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			played_at TEXT NOT NULL,
			album TEXT NOT NULL,
			track TEXT NOT NULL,
			commentary TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Append inserts one entry row.
func (s *SQLiteSink) Append(e Entry) error {
	query := `INSERT INTO history (id, played_at, album, track, commentary) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, e.ID, e.Timestamp.Format(TimeFormat), e.Album, e.Track, e.Commentary); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest rows, oldest first.
func (s *SQLiteSink) Recent(limit int) ([]Entry, error) {
	query := `
		SELECT id, played_at, album, track, commentary
		FROM (
			SELECT id, played_at, album, track, commentary, rowid
			FROM history ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var playedAt string
		if err := rows.Scan(&e.ID, &playedAt, &e.Album, &e.Track, &e.Commentary); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if t, err := parseTimestamp(playedAt); err == nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating history: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
