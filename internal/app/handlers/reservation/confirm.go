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

const confirmReservationKey = "reservation.confirm"

// ConfirmReservationCommand is the manual confirmation path, used by the host
// or an admin when payment is settled out of band. The webhook path stays the
// normal route.
type ConfirmReservationCommand struct {
	ReservationID string
	Actor         Actor
}

func (c ConfirmReservationCommand) Key() string { return confirmReservationKey }

type ConfirmReservationResult struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type ConfirmReservationHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *ConfirmReservationHandler) Handle(ctx context.Context, cmd ConfirmReservationCommand) (*ConfirmReservationResult, error) {
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
	listingAgg, listingErr := unit.Listings().ByID(execCtx, res.ListingID)
	if listingErr != nil {
		listingAgg = nil
	}
	if !h.authorized(cmd.Actor, listingAgg) {
		return nil, ErrForbidden
	}

	now := h.now()
	if res.IsExpired(now) {
		// The hold lapsed while nobody was looking; settle it now and report
		// that it can no longer be confirmed.
		if err := res.Expire(now); err != nil {
			return nil, err
		}
		if err := h.persist(execCtx, unit, res); err != nil {
			return nil, err
		}
		if managed {
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
		}
		return nil, domainreservation.ErrHoldExpired
	}

	if err := res.Confirm("", now); err != nil {
		return nil, err
	}
	if err := h.persist(execCtx, unit, res); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		if err := h.Notifier.NotifyConfirmed(ctx, res, listingAgg); err != nil && h.Logger != nil {
			h.Logger.Warn("confirmation notification failed", "reservation_id", res.ID, "error", err)
		}
	}
	return &ConfirmReservationResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
}

func (h *ConfirmReservationHandler) authorized(actor Actor, listingAgg *domainlisting.Listing) bool {
	if actor.IsAdmin() {
		return true
	}
	return listingAgg != nil && string(listingAgg.Host) == actor.ID
}

func (h *ConfirmReservationHandler) persist(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) error {
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return err
	}
	pending := res.PendingEvents()
	res.ClearEvents()
	encoder := h.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.RecordDomainEvents(ctx, h.Outbox, encoder, pending)
}

func (h *ConfirmReservationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[ConfirmReservationCommand, *ConfirmReservationResult] = (*ConfirmReservationHandler)(nil)
