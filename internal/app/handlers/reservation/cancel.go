package reservation

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
)

const cancelReservationKey = "reservation.cancel"

// CancelReservationCommand releases a reservation's dates. The holder may
// cancel while payment is still pending; once confirmed, only an admin may,
// since that usually implies a refund handled elsewhere.
type CancelReservationCommand struct {
	ReservationID string
	Actor         Actor
	Reason        string
}

func (c CancelReservationCommand) Key() string { return cancelReservationKey }

type CancelReservationResult struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type CancelReservationHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*CancelReservationResult, error) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	managed := cleanup != nil
	committed := false
	if managed {
		defer func() {
			if !committed {
				cleanup()
			}
		}()
	}

	res, err := unit.Reservations().ByID(execCtx, domainreservation.ReservationID(cmd.ReservationID))
	if err != nil {
		return nil, err
	}
	if !h.authorized(cmd.Actor, res) {
		return nil, ErrForbidden
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by " + cmd.Actor.ID
	}
	if err := res.Cancel(reason, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(execCtx, res); err != nil {
		return nil, err
	}
	pending := res.PendingEvents()
	res.ClearEvents()
	encoder := h.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, encoder, pending); err != nil {
		return nil, err
	}

	var listingAgg *domainlisting.Listing
	if h.Notifier != nil {
		if l, lerr := unit.Listings().ByID(execCtx, res.ListingID); lerr == nil {
			listingAgg = l
		}
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		if err := h.Notifier.NotifyCancelled(ctx, res, listingAgg); err != nil && h.Logger != nil {
			h.Logger.Warn("cancellation notification failed", "reservation_id", res.ID, "error", err)
		}
	}
	return &CancelReservationResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
}

func (h *CancelReservationHandler) authorized(actor Actor, res *domainreservation.Reservation) bool {
	if actor.IsAdmin() {
		return true
	}
	return res.Status == domainreservation.StatusPendingPayment && res.GuestID == actor.ID
}

func (h *CancelReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CancelReservationCommand, *CancelReservationResult] = (*CancelReservationHandler)(nil)
