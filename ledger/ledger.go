// Package ledger keeps a bounded, append-only record of authorized calls
// plus per-resource usage counters. It is a display and diagnostics buffer;
// the facilitator remains the billing authority.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a ledger entry.
type Status string

const (
	// StatusSettled marks an entry backed by a facilitator receipt.
	StatusSettled Status = "settled"
	// StatusPending marks an entry recorded without settlement (demo
	// mode). Pending entries never transition to settled in place.
	StatusPending Status = "pending"
)

// Receipt is the settlement record attached to an entry. Nil only for
// pending entries.
type Receipt struct {
	TxID   string `json:"txId"`
	Status string `json:"status"`
	Payer  string `json:"payer,omitempty"`
}

// Entry records exactly one authorized call. Entries are immutable after
// creation.
type Entry struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	Timestamp  time.Time `json:"timestamp"`
	Receipt    *Receipt  `json:"payment"`
	Status     Status    `json:"status"`
}

// NewEntry builds an entry for resourceID. A nil receipt yields a pending
// entry; otherwise the entry is settled.
func NewEntry(resourceID string, receipt *Receipt) Entry {
	status := StatusSettled
	if receipt == nil {
		status = StatusPending
	}
	return Entry{
		ID:         "tx_" + uuid.NewString(),
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
		Receipt:    receipt,
		Status:     status,
	}
}

// DefaultCapacity bounds the entry buffer when no capacity is given.
const DefaultCapacity = 500

// Ledger is a fixed-capacity FIFO buffer of entries with monotonic
// per-resource counters. Counters survive eviction: trimming old entries
// never decreases a count. Safe for concurrent use.
type Ledger struct {
	mu     sync.Mutex
	buf    []Entry
	head   int
	size   int
	counts map[string]uint64
	total  uint64
}

// New creates a ledger holding at most capacity entries.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		buf:    make([]Entry, capacity),
		counts: make(map[string]uint64),
	}
}

// Append records an entry, evicting the oldest one if the buffer is full.
// The counter increment is atomic with the append: concurrent appends never
// lose an increment or corrupt eviction order.
func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == len(l.buf) {
		// Overwrite the oldest slot; counts are untouched by eviction.
		l.buf[l.head] = e
		l.head = (l.head + 1) % len(l.buf)
	} else {
		l.buf[(l.head+l.size)%len(l.buf)] = e
		l.size++
	}
	l.counts[e.ResourceID]++
	l.total++
}

// Recent returns up to n entries, newest first.
func (l *Ledger) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.size {
		n = l.size
	}
	if n <= 0 {
		return []Entry{}
	}
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.head + l.size - 1 - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// CountsByResource returns a copy of the per-resource call counters.
func (l *Ledger) CountsByResource() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]uint64, len(l.counts))
	for id, n := range l.counts {
		out[id] = n
	}
	return out
}

// Count returns the call counter for a single resource.
func (l *Ledger) Count(resourceID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[resourceID]
}

// Len returns the number of entries currently buffered (post-eviction).
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Total returns the lifetime number of appends, eviction notwithstanding.
func (l *Ledger) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
