// Package collision tallies records by logtype fingerprint and detects fingerprint
// collisions between different logtypes.
package collision

import (
	"cmp"
	"slices"
)

// Entry is the tally of one logtype fingerprint.
type Entry struct {
	ID      uint64 // xxHash64 of the logtype
	Logtype string // first logtype seen with this ID
	Count   uint64 // records carrying the ID
}

// Tracker counts logtypes by ID. It keeps the first logtype seen per ID and flags a
// collision when a different logtype arrives with the same ID.
type Tracker struct {
	entries    map[uint64]*Entry // ID → tally
	order      []*Entry          // first-seen order
	collisions int
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[uint64]*Entry),
		order:   make([]*Entry, 0),
	}
}

// Track counts one record of logtype with fingerprint id.
//
// Returns true when id was already tracked for a different logtype. The record is
// still counted under id.
func (t *Tracker) Track(id uint64, logtype string) bool {
	e, exists := t.entries[id]
	if !exists {
		e = &Entry{ID: id, Logtype: logtype}
		t.entries[id] = e
		t.order = append(t.order, e)
	}
	e.Count++

	if exists && e.Logtype != logtype {
		t.collisions++
		return true
	}

	return false
}

// HasCollision returns true if a collision has been detected.
func (t *Tracker) HasCollision() bool {
	return t.collisions > 0
}

// Collisions returns the number of records whose logtype collided with another one.
func (t *Tracker) Collisions() int {
	return t.collisions
}

// Count returns the number of distinct IDs.
func (t *Tracker) Count() int {
	return len(t.order)
}

// Entries returns copies of the tallies in first-seen order.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.order))
	for i, e := range t.order {
		out[i] = *e
	}

	return out
}

// Top returns the n most frequent tallies, ties broken by ID. n <= 0 returns all.
func (t *Tracker) Top(n int) []Entry {
	out := t.Entries()
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}

	return out
}

// Reset clears all tallies and the collision state.
func (t *Tracker) Reset() {
	// Clear maps but preserve capacity to avoid allocations
	clear(t.entries)
	t.order = t.order[:0]
	t.collisions = 0
}
