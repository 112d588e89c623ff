// Package history keeps a bounded, in-memory log of executed queries.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dbdeck/internal/database"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 200

// Status is the outcome of a logged query.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one executed query.
type Entry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Query      string          `json:"query"`
	Database   string          `json:"database"`
	Engine     database.Engine `json:"db_type"`
	Status     Status          `json:"status"`
	Duration   time.Duration   `json:"-"`
	DurationMS int64           `json:"execution_time_ms"`
	RowCount   int             `json:"row_count"`
	Error      string          `json:"error,omitempty"`
}

// Log is a fixed-capacity query log; once full, the oldest entry is dropped.
// It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	size    int
	entries []Entry // oldest first
	now     func() time.Time
}

// New returns a log holding at most size entries. A non-positive size
// selects DefaultSize.
func New(size int) *Log {
	if size <= 0 {
		size = DefaultSize
	}
	return &Log{size: size, now: time.Now}
}

// Record appends e, assigning its ID and Timestamp when unset, and returns
// the stored entry.
func (l *Log) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	e.DurationMS = e.Duration.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.size; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return e
}

// List returns a copy of the log, newest first.
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Len reports the number of stored entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
