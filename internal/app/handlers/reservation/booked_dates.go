package reservation

import (
	"context"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
)

const getBookedDatesKey = "reservation.booked_dates"

// GetBookedDatesQuery feeds the public availability calendar for a listing.
type GetBookedDatesQuery struct {
	ListingID string
}

func (q GetBookedDatesQuery) Key() string { return getBookedDatesKey }

type GetBookedDatesHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *GetBookedDatesHandler) Handle(ctx context.Context, query GetBookedDatesQuery) (*dto.BookedDates, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if _, err := unit.Listings().ByID(execCtx, domainlisting.ListingID(query.ListingID)); err != nil {
		return nil, err
	}
	blocking, err := unit.Reservations().BlockingByListing(execCtx, domainlisting.ListingID(query.ListingID))
	if err != nil {
		return nil, err
	}

	// Read-only path: holds past their deadline are filtered out here and left
	// for the sweeper to settle.
	now := h.now()
	result := &dto.BookedDates{Items: make([]dto.BookedRange, 0, len(blocking))}
	for _, res := range blocking {
		if res.IsExpired(now) {
			continue
		}
		result.Items = append(result.Items, dto.MapBookedRange(res.Range))
	}
	return result, nil
}

func (h *GetBookedDatesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ queries.Handler[GetBookedDatesQuery, *dto.BookedDates] = (*GetBookedDatesHandler)(nil)
