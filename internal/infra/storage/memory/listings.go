package memory

import (
	"context"
	"sync"

	domainlisting "staybook/internal/domain/listing"
)

// ListingRepository is an in-memory implementation for dev and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ListingID]domainlisting.Listing
}

// NewListingRepository builds an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlisting.ListingID]domainlisting.Listing),
	}
}

// ByID returns a listing or listing.ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrListingNotFound
	}
	copied := item
	return &copied, nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[l.ID] = *l
	return nil
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
