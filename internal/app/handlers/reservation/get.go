package reservation

import (
	"context"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
)

const getReservationKey = "reservation.get"

type GetReservationQuery struct {
	ReservationID string
	Actor         Actor
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type GetReservationHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetReservationHandler) Handle(ctx context.Context, query GetReservationQuery) (*dto.ReservationSummary, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	res, err := unit.Reservations().ByID(execCtx, domainreservation.ReservationID(query.ReservationID))
	if err != nil {
		return nil, err
	}
	listingAgg, listingErr := unit.Listings().ByID(execCtx, res.ListingID)
	if listingErr != nil {
		listingAgg = nil
	}
	if !h.visible(query.Actor, res, listingAgg) {
		return nil, ErrForbidden
	}

	summary := dto.MapReservationSummary(res, listingAgg)
	return &summary, nil
}

// visible: the holder, the listing's host, or an admin.
func (h *GetReservationHandler) visible(actor Actor, res *domainreservation.Reservation, listingAgg *domainlisting.Listing) bool {
	if actor.IsAdmin() || res.GuestID == actor.ID {
		return true
	}
	return listingAgg != nil && string(listingAgg.Host) == actor.ID
}

var _ queries.Handler[GetReservationQuery, *dto.ReservationSummary] = (*GetReservationHandler)(nil)
