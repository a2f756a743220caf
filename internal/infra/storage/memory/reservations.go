package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
)

// ReservationRepository stores reservations in memory. Reads hand out copies so
// a caller mutating an aggregate cannot leak state past a failed Save.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[domainreservation.ReservationID]domainreservation.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		items: make(map[domainreservation.ReservationID]domainreservation.Reservation),
	}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	return cloneReservation(item), nil
}

func (r *ReservationRepository) BySessionRef(ctx context.Context, sessionRef string) (*domainreservation.Reservation, error) {
	if sessionRef == "" {
		return nil, domainreservation.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.PaymentSessionRef == sessionRef {
			return cloneReservation(item), nil
		}
	}
	return nil, domainreservation.ErrNotFound
}

func (r *ReservationRepository) BlockingByListing(ctx context.Context, id domainlisting.ListingID) ([]*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainreservation.Reservation
	for _, item := range r.items {
		if item.ListingID == id && item.Status.Blocking() {
			matches = append(matches, cloneReservation(item))
		}
	}
	return matches, nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainreservation.Reservation
	for _, item := range r.items {
		if item.GuestID == guestID {
			matches = append(matches, cloneReservation(item))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *ReservationRepository) DuePending(ctx context.Context, now time.Time) ([]*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainreservation.Reservation
	for _, item := range r.items {
		if item.Status == domainreservation.StatusPendingPayment &&
			item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
			matches = append(matches, cloneReservation(item))
		}
	}
	return matches, nil
}

// Save applies an optimistic-version check matching the durable store.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[res.ID]; ok && current.Version != res.Version {
		return ErrConcurrentUpdate
	}
	res.Version++
	stored := *res
	stored.ClearEvents()
	r.items[res.ID] = stored
	return nil
}

func cloneReservation(item domainreservation.Reservation) *domainreservation.Reservation {
	copied := item
	if item.ExpiresAt != nil {
		expires := *item.ExpiresAt
		copied.ExpiresAt = &expires
	}
	return &copied
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
