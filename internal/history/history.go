// Package history keeps the append-only record of everything the radio has
// played, with optional mirrors to CSV and SQLite sinks.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is how sinks render entry timestamps.
const TimeFormat = "2006-01-02 15:04:05"

// Entry is one played track with its commentary. Created exactly once per
// track start and never mutated.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Album      string    `json:"album"`
	Track      string    `json:"track"`
	Commentary string    `json:"commentary"`
}

// NewEntry stamps a fresh entry for a track that just started playing.
func NewEntry(album, track, commentary string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Album:      album,
		Track:      track,
		Commentary: commentary,
	}
}

// Sink mirrors entries to external storage. Append failures are reported to
// the caller, who logs and continues; a broken sink never blocks playback.
type Sink interface {
	Append(Entry) error
	Close() error
}

// Log is the in-memory append-only record. Append order equals playback
// start order; entries are never reordered or removed.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds one entry at the end.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Recent returns up to limit of the newest entries, oldest first. A
// non-positive limit returns everything. The slice is a copy.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
