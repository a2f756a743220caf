package memory

import (
	"sync"

	"staybook/internal/app/policies"
	domainlisting "staybook/internal/domain/listing"
)

// ListingLocker serializes checkout attempts per listing so two requests for
// overlapping dates cannot both pass the availability check.
type ListingLocker struct {
	mu    sync.Mutex
	locks map[domainlisting.ListingID]*sync.Mutex
}

func NewListingLocker() *ListingLocker {
	return &ListingLocker{locks: make(map[domainlisting.ListingID]*sync.Mutex)}
}

func (l *ListingLocker) Lock(id domainlisting.ListingID) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

var _ policies.ListingLocker = (*ListingLocker)(nil)
