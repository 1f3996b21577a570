// Package ledger holds the append-only audit store. The slice is the source
// of truth for entry ordering: position reflects append order, which is the
// order the critical section was acquired in, not necessarily event causality
// across concurrently moderated events.
package ledger

import (
	"context"
	"sync"

	"arbiter/internal/audit"
)

// AppendOnly is the in-memory audit ledger. Entries are never mutated or
// removed; Append takes the exclusive lock only for the slice append.
type AppendOnly struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAppendOnly() *AppendOnly {
	return &AppendOnly{}
}

// Append stores the entry and returns its index in the ledger.
func (l *AppendOnly) Append(_ context.Context, entry audit.Entry) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1, nil
}

// List returns a copy of every entry in append order. Callers filter and
// paginate over the copy so the ledger lock is held only for the copy itself.
func (l *AppendOnly) List(_ context.Context) ([]audit.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]audit.Entry(nil), l.entries...), nil
}

// Count returns the number of entries appended so far.
func (l *AppendOnly) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}
