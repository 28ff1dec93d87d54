// Package history keeps short, bounded logs of finished operations and
// checks, newest first. Each feature owns its list; nothing is persisted.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCap is the number of entries a List retains unless configured otherwise.
const DefaultCap = 10

type Entry struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Label     string            `json:"label"`
	Succeeded bool              `json:"succeeded"`
	TxHash    string            `json:"tx_hash,omitempty"`
	Error     string            `json:"error,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"` // UTC
}

// List is a bounded log. Pushing onto a full List drops the oldest entry.
type List struct {
	mu      sync.RWMutex
	cap     int
	entries []Entry
}

func NewList(capacity int) *List {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &List{cap: capacity, entries: make([]Entry, 0, capacity)}
}

// Push prepends e, assigning an ID and timestamp when unset, and returns
// the stored entry.
func (l *List) Push(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
	return e
}

// Entries returns a copy of the log, newest first.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *List) Cap() int { return l.cap }

func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
