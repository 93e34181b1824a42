package service

import (
	"sync"

	"github.com/google/uuid"
)

// ListingGuard serialises bid acceptance and settlement per listing inside
// this process. It complements the row lock taken by GetByIDForUpdate: the
// database lock is the correctness boundary, the guard keeps goroutines from
// piling up on the same row and holding transactions open.
//
// Entries are reference counted and removed when the last holder releases, so
// the map does not grow with the lifetime set of listing ids.
type ListingGuard struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

func NewListingGuard() *ListingGuard {
	return &ListingGuard{entries: make(map[uuid.UUID]*guardEntry)}
}

// Lock blocks until the per-listing mutex is held and returns the release
// function. Always call release exactly once, typically via defer.
func (g *ListingGuard) Lock(id uuid.UUID) (release func()) {
	g.mu.Lock()
	e, ok := g.entries[id]
	if !ok {
		e = &guardEntry{}
		g.entries[id] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		g.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(g.entries, id)
		}
		g.mu.Unlock()
	}
}
