// Package playlist holds the shuffled play order the radio walks through.
package playlist

import (
	"math/rand"
	"time"

	"github.com/1mb-dev/homespin/internal/library"
)

// Entry pairs an album name with one of its tracks.
type Entry struct {
	Album string        `json:"album"`
	Track library.Track `json:"track"`
}

// Queue is an ordered sequence of entries plus a cursor marking the current
// one. It is not safe for concurrent use; the orchestrator serializes all
// access.
type Queue struct {
	entries []Entry
	cursor  int
	rng     *rand.Rand
}

// Build creates a queue containing exactly one entry per (album, track) pair
// in the index, in random order. Ordering is opaque; only the multiset of
// entries is guaranteed.
func Build(ix *library.Index) *Queue {
	q := &Queue{
		entries: make([]Entry, 0, ix.Len()),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, t := range ix.All() {
		q.entries = append(q.entries, Entry{Album: t.Album, Track: t})
	}

	// Fisher-Yates shuffle
	for i := len(q.entries) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	}
	return q
}

// Advance moves the cursor forward one entry, wrapping at the end.
func (q *Queue) Advance() {
	if len(q.entries) == 0 {
		return
	}
	q.cursor = (q.cursor + 1) % len(q.entries)
}

// Retreat moves the cursor back one entry. It does not wrap: at the first
// entry the cursor stays 0, avoiding negative-index ambiguity.
func (q *Queue) Retreat() {
	if q.cursor > 0 {
		q.cursor--
	}
}

// InsertFront places e at position 0 and resets the cursor to it. This
// mutates the iteration order; callers must expect the shift.
func (q *Queue) InsertFront(e Entry) {
	q.entries = append([]Entry{e}, q.entries...)
	q.cursor = 0
}

// Current returns the entry at the cursor, or a zero entry if the queue is
// empty.
func (q *Queue) Current() Entry {
	if len(q.entries) == 0 {
		return Entry{}
	}
	return q.entries[q.cursor]
}

// Cursor returns the current position.
func (q *Queue) Cursor() int {
	return q.cursor
}

// Len returns the number of entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the play order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
