package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainreservation "staybook/internal/domain/reservation"
)

const abortCheckoutKey = "checkout.abort"

var ErrNotHolder = errors.New("checkout: only the reservation holder may abort")

// AbortCheckoutCommand cancels a pending hold when the guest backs out of the
// hosted payment page (the provider's cancel redirect lands here).
type AbortCheckoutCommand struct {
	ReservationID string
	ActorID       string
}

func (c AbortCheckoutCommand) Key() string { return abortCheckoutKey }

type AbortCheckoutResult struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type AbortCheckoutHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *AbortCheckoutHandler) Handle(ctx context.Context, cmd AbortCheckoutCommand) (*AbortCheckoutResult, error) {
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
	if res.GuestID != cmd.ActorID {
		return nil, ErrNotHolder
	}
	// Abort only releases unpaid holds; once payment settled, cancellation
	// goes through the admin path.
	if res.Status != domainreservation.StatusPendingPayment {
		return nil, domainreservation.ErrInvalidTransition
	}
	now := h.now()
	if err := res.Cancel("checkout aborted by guest", now); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(execCtx, res); err != nil {
		return nil, err
	}
	pending := res.PendingEvents()
	res.ClearEvents()
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.encoderOrDefault(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &AbortCheckoutResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
}

func (h *AbortCheckoutHandler) encoderOrDefault() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *AbortCheckoutHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[AbortCheckoutCommand, *AbortCheckoutResult] = (*AbortCheckoutHandler)(nil)
