// Package history keeps the latest copy of the backend's history list. The
// list is replaced wholesale by every successful fetch; entries are never
// merged or diffed.
package history

import (
	"sync"
	"time"

	"assistant-dashboard/internal/api"
)

type List struct {
	mu        sync.RWMutex
	entries   []api.HistoryEntry
	loaded    bool
	updatedAt time.Time
	issued    uint64
	applied   uint64
}

func NewList() *List {
	return &List{}
}

// Ticket reserves a sequence number before a fetch starts. Fetches can
// overlap (one per exchange plus scheduled syncs); ReplaceIf keeps the
// result of the most recently started fetch that completed.
func (l *List) Ticket() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issued++
	return l.issued
}

// ReplaceIf installs entries unless a fetch started later already did.
func (l *List) ReplaceIf(ticket uint64, entries []api.HistoryEntry, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ticket < l.applied {
		return false
	}
	l.applied = ticket
	l.entries = append([]api.HistoryEntry(nil), entries...)
	l.loaded = true
	l.updatedAt = at
	return true
}

// Replace installs entries unconditionally.
func (l *List) Replace(entries []api.HistoryEntry, at time.Time) {
	l.ReplaceIf(l.Ticket(), entries, at)
}

// Entries returns a copy in backend order.
func (l *List) Entries() []api.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]api.HistoryEntry(nil), l.entries...)
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Loaded reports whether at least one fetch succeeded.
func (l *List) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (l *List) UpdatedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.updatedAt
}
