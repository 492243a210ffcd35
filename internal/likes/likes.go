// Package likes keeps the local list of matches of the current user.
package likes

import (
	"sync"

	"github.com/and161185/machtrueke/internal/model"
)

// List holds at most one match per product id, newest first.
type List struct {
	mu    sync.RWMutex
	items []model.Match
}

// New returns an empty list.
func New() *List { return &List{} }

// Upsert records m. If a match for the same product exists it is updated in
// place: non-empty fields of m override the stored ones. Otherwise m is
// prepended. Matches without a product id are ignored.
func (l *List) Upsert(m model.Match) {
	if m.Product.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].Product.ID == m.Product.ID {
			l.items[i] = merge(l.items[i], m)
			return
		}
	}
	l.items = append([]model.Match{m}, l.items...)
}

func merge(old, m model.Match) model.Match {
	out := old
	if m.ID != "" {
		out.ID = m.ID
	}
	if m.Product.Title != "" {
		out.Product.Title = m.Product.Title
	}
	if m.Product.Cover != "" {
		out.Product.Cover = m.Product.Cover
	}
	if m.Owner.ID != "" {
		out.Owner.ID = m.Owner.ID
	}
	if m.Owner.Name != "" {
		out.Owner.Name = m.Owner.Name
	}
	if m.Owner.Avatar != "" {
		out.Owner.Avatar = m.Owner.Avatar
	}
	if m.Note != "" {
		out.Note = m.Note
	}
	if !m.CreatedAt.IsZero() {
		out.CreatedAt = m.CreatedAt
	}
	return out
}

// SetAll replaces the list with ms, which is expected newest first.
// Entries sharing a product id are merged; the earlier entry's fields win.
func (l *List) SetAll(ms []model.Match) {
	fresh := &List{}
	for i := len(ms) - 1; i >= 0; i-- {
		fresh.Upsert(ms[i])
	}
	l.mu.Lock()
	l.items = fresh.items
	l.mu.Unlock()
}

// Clear empties the list.
func (l *List) Clear() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// All returns a copy of the matches, newest first.
func (l *List) All() []model.Match {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Match(nil), l.items...)
}

// Len returns the number of matches.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
