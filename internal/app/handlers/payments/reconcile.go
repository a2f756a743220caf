package payments

import (
	"context"
	"errors"
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

const paymentCompletedKey = "payments.completed"

// PaymentCompletedCommand reconciles a provider's "checkout session completed"
// notification with the reservation it paid for. Providers retry deliveries, so
// the handler must be safe to run any number of times for the same session.
type PaymentCompletedCommand struct {
	SessionRef      string
	ConfirmationRef string
	EventID         string
}

func (c PaymentCompletedCommand) Key() string { return paymentCompletedKey }

type PaymentCompletedResult struct {
	ReservationID string `json:"reservation_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

type PaymentCompletedHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *PaymentCompletedHandler) Handle(ctx context.Context, cmd PaymentCompletedCommand) (*PaymentCompletedResult, error) {
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

	res, err := unit.Reservations().BySessionRef(execCtx, cmd.SessionRef)
	if err != nil {
		// Unknown session: acknowledge so the provider stops retrying, but leave
		// a trace for reconciliation.
		if errors.Is(err, domainreservation.ErrNotFound) {
			h.warn("payment event for unknown session", "session_ref", cmd.SessionRef, "event_id", cmd.EventID)
			return &PaymentCompletedResult{}, nil
		}
		return nil, err
	}

	// Redelivery of an already applied event.
	if res.Status == domainreservation.StatusConfirmed {
		return &PaymentCompletedResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
	}
	if res.Status.Terminal() {
		h.warn("payment event for settled reservation",
			"reservation_id", res.ID, "status", res.Status, "event_id", cmd.EventID)
		return &PaymentCompletedResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
	}

	if err := res.Confirm(cmd.ConfirmationRef, h.now()); err != nil {
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
		if err := h.Notifier.NotifyConfirmed(ctx, res, listingAgg); err != nil {
			h.warn("confirmation notification failed", "reservation_id", res.ID, "error", err)
		}
	}
	return &PaymentCompletedResult{ReservationID: string(res.ID), Status: string(res.Status)}, nil
}

func (h *PaymentCompletedHandler) warn(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Warn(msg, args...)
	}
}

func (h *PaymentCompletedHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[PaymentCompletedCommand, *PaymentCompletedResult] = (*PaymentCompletedHandler)(nil)
