package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

const createCheckoutKey = "checkout.create"

type CreateCheckoutCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c CreateCheckoutCommand) Key() string { return createCheckoutKey }

func (c CreateCheckoutCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateCheckoutCommand) ResultPrototype() any { return &CreateCheckoutResult{} }

type CreateCheckoutResult struct {
	Reservation       dto.ReservationSummary `json:"reservation"`
	PaymentSessionURL string                 `json:"payment_session_url"`
}

// CreateCheckoutHandler runs the checkout sequence: validate, sweep the
// listing's stale holds, check availability, price the stay, persist the
// pending hold, then start the hosted payment session and link it back.
//
// The hold is committed before the provider call on purpose. A provider
// failure leaves a PENDING_PAYMENT record that expires on its own instead of
// requiring a compensating delete.
type CreateCheckoutHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Locks      policies.ListingLocker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	BaseURL    string
	HoldTTL    time.Duration
	Now        func() time.Time
}

func (h *CreateCheckoutHandler) Handle(ctx context.Context, cmd CreateCheckoutCommand) (*CreateCheckoutResult, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := h.now()

	if h.Locks != nil {
		unlock := h.Locks.Lock(domainlisting.ListingID(cmd.ListingID))
		defer unlock()
	}

	res, listingAgg, err := h.placeHold(ctx, cmd, dr, now)
	if err != nil {
		return nil, err
	}

	session, err := h.Payments.CreateCheckoutSession(ctx, policies.CheckoutSessionParams{
		ReservationID: string(res.ID),
		GuestID:       res.GuestID,
		ListingID:     string(res.ListingID),
		Amount:        res.TotalPrice,
		Title:         listingAgg.Title,
		Description:   stayDescription(dr.Nights(), res.Guests),
		ImageURL:      listingAgg.ThumbnailURL,
		SuccessURL:    h.BaseURL + "/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     h.BaseURL + "/payments/cancel?reservation_id=" + string(res.ID),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("payment session creation failed, hold left to expire",
				"reservation_id", res.ID, "error", err)
		}
		return nil, fmt.Errorf("%w: %w", policies.ErrPaymentSession, err)
	}

	if err := h.attachSession(ctx, res.ID, session.ID, now); err != nil {
		return nil, err
	}
	res.PaymentSessionRef = session.ID

	return &CreateCheckoutResult{
		Reservation:       dto.MapReservationSummary(res, listingAgg),
		PaymentSessionURL: session.URL,
	}, nil
}

// placeHold owns the first write boundary: sweep, availability check, hold insert.
func (h *CreateCheckoutHandler) placeHold(ctx context.Context, cmd CreateCheckoutCommand, dr daterange.DateRange, now time.Time) (*domainreservation.Reservation, *domainlisting.Listing, error) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, nil, err
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

	listingAgg, err := unit.Listings().ByID(execCtx, domainlisting.ListingID(cmd.ListingID))
	if err != nil {
		return nil, nil, err
	}
	if !listingAgg.Accommodates(cmd.Guests) {
		return nil, nil, domainlisting.ErrTooManyGuests
	}

	blocking, err := h.sweepListing(execCtx, unit, listingAgg.ID, now)
	if err != nil {
		return nil, nil, err
	}
	if !domainreservation.IsAvailable(blocking, dr) {
		return nil, nil, domainreservation.ErrDatesUnavailable
	}

	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          domainreservation.ReservationID(cmd.CommandID),
		ListingID:   listingAgg.ID,
		GuestID:     cmd.GuestID,
		Range:       dr,
		Guests:      cmd.Guests,
		NightlyRate: listingAgg.NightlyRate,
		HoldTTL:     h.HoldTTL,
		Now:         now,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := unit.Reservations().Save(execCtx, res); err != nil {
		return nil, nil, err
	}
	pending := res.PendingEvents()
	res.ClearEvents()
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, nil, err
		}
		committed = true
	}
	return res, listingAgg, nil
}

// sweepListing lazily expires the listing's stale holds and returns the
// remaining blocking reservations. Sweep failures on individual records abort
// the checkout rather than risking a double-booking over unswept state.
func (h *CreateCheckoutHandler) sweepListing(ctx context.Context, unit uow.UnitOfWork, id domainlisting.ListingID, now time.Time) ([]*domainreservation.Reservation, error) {
	blocking, err := unit.Reservations().BlockingByListing(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining := blocking[:0]
	for _, r := range blocking {
		if !r.IsExpired(now) {
			remaining = append(remaining, r)
			continue
		}
		if err := r.Expire(now); err != nil {
			return nil, err
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return nil, err
		}
		pending := r.PendingEvents()
		r.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

// attachSession owns the second write boundary: persisting the session ref.
func (h *CreateCheckoutHandler) attachSession(ctx context.Context, id domainreservation.ReservationID, sessionRef string, now time.Time) error {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return err
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

	res, err := unit.Reservations().ByID(execCtx, id)
	if err != nil {
		return err
	}
	if err := res.AttachPaymentSession(sessionRef, now); err != nil {
		return err
	}
	if err := unit.Reservations().Save(execCtx, res); err != nil {
		return err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
	}
	return nil
}

func (h *CreateCheckoutHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CreateCheckoutHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func stayDescription(nights, guests int) string {
	return fmt.Sprintf("%d %s • %d %s", nights, plural(nights, "night"), guests, plural(guests, "guest"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

var _ commands.Handler[CreateCheckoutCommand, *CreateCheckoutResult] = (*CreateCheckoutHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateCheckoutCommand)(nil)
