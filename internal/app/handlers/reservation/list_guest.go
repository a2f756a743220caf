package reservation

import (
	"context"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
)

const listGuestReservationsKey = "reservation.list_guest"

// ListGuestReservationsQuery backs the guest's trips page: every reservation
// they ever held, newest first, terminal ones included.
type ListGuestReservationsQuery struct {
	GuestID string
}

func (q ListGuestReservationsQuery) Key() string { return listGuestReservationsKey }

type ListGuestReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListGuestReservationsHandler) Handle(ctx context.Context, query ListGuestReservationsQuery) (*dto.ReservationCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Reservations().ListByGuest(execCtx, query.GuestID)
	if err != nil {
		return nil, err
	}

	listings := make(map[domainlisting.ListingID]*domainlisting.Listing, len(items))
	collection := &dto.ReservationCollection{Items: make([]dto.ReservationSummary, 0, len(items))}
	for _, res := range items {
		listingAgg, cached := listings[res.ListingID]
		if !cached {
			if l, lerr := unit.Listings().ByID(execCtx, res.ListingID); lerr == nil {
				listingAgg = l
			}
			listings[res.ListingID] = listingAgg
		}
		collection.Items = append(collection.Items, dto.MapReservationSummary(res, listingAgg))
	}
	return collection, nil
}

var _ queries.Handler[ListGuestReservationsQuery, *dto.ReservationCollection] = (*ListGuestReservationsHandler)(nil)
