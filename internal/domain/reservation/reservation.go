package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/listing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrGuestRequired     = errors.New("reservation: guest id required")
	ErrInvalidGuests     = errors.New("reservation: guests must be between 1 and 6")
	ErrStayTooLong       = errors.New("reservation: maximum stay is 14 nights")
	ErrDatesUnavailable  = errors.New("reservation: selected dates are not available")
	ErrInvalidTransition = errors.New("reservation: invalid state transition")
	ErrHoldExpired       = errors.New("reservation: payment hold has expired")
	ErrHoldNotDue        = errors.New("reservation: payment hold has not expired yet")
)

// Stay policy observed by the checkout flow.
const (
	MinStayNights = 1
	MaxStayNights = 14
	MinGuests     = 1
	MaxGuests     = 6

	// DefaultHoldTTL bounds how long an unpaid hold blocks the calendar.
	DefaultHoldTTL = 24 * time.Hour
)

type ReservationID string

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusExpired        Status = "EXPIRED"
)

// Terminal reports whether the payment flow is settled for this status. Only
// the admin cancellation path moves a reservation out of a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Blocking reports whether a reservation in this status occupies its dates for
// availability purposes. Cancelled and expired holds release the calendar.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusExpired
}

// Reservation is a date-range hold on a listing. It is created pending payment
// with a deadline, and either confirmed by the payment provider, cancelled by
// the holder, or expired by the sweeper. TotalPrice is computed exactly once at
// creation and never recomputed from the listing afterwards.
type Reservation struct {
	ID         ReservationID
	ListingID  listing.ListingID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	TotalPrice money.Money
	Status     Status

	// PaymentSessionRef correlates asynchronous provider callbacks back to this
	// hold; PaymentConfirmationRef is set on confirmation for auditing.
	PaymentSessionRef      string
	PaymentConfirmationRef string

	CreatedAt time.Time
	UpdatedAt time.Time
	// ExpiresAt is non-nil iff Status == StatusPendingPayment.
	ExpiresAt *time.Time

	Version int64
	events.EventRecorder
}

type CreateParams struct {
	ID          ReservationID
	ListingID   listing.ListingID
	GuestID     string
	Range       daterange.DateRange
	Guests      int
	NightlyRate money.Money
	HoldTTL     time.Duration
	Now         time.Time
}

// New creates a pending-payment hold. The total is priced here, from the nightly
// rate the listing carried at this moment, and is immutable from then on.
func New(params CreateParams) (*Reservation, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.Guests < MinGuests || params.Guests > MaxGuests {
		return nil, ErrInvalidGuests
	}
	nights := params.Range.Nights()
	if nights < MinStayNights {
		return nil, daterange.ErrCheckOutNotAfterCheckIn
	}
	if nights > MaxStayNights {
		return nil, ErrStayTooLong
	}
	ttl := params.HoldTTL
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	now := params.Now.UTC()
	deadline := now.Add(ttl)
	r := &Reservation{
		ID:         params.ID,
		ListingID:  params.ListingID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		TotalPrice: params.NightlyRate.Multiply(int64(nights)),
		Status:     StatusPendingPayment,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  &deadline,
	}
	r.Record(ReservationRequested{
		ReservationID: r.ID,
		ListingID:     r.ListingID,
		GuestID:       r.GuestID,
		Range:         r.Range,
		Guests:        r.Guests,
		Total:         r.TotalPrice,
		ExpiresAt:     deadline,
		At:            now,
	})
	return r, nil
}

// AttachPaymentSession links the external checkout session to the hold.
func (r *Reservation) AttachPaymentSession(sessionRef string, now time.Time) error {
	if r.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	r.PaymentSessionRef = sessionRef
	r.UpdatedAt = now.UTC()
	return nil
}

// Confirm transitions a pending hold to confirmed, clearing the deadline.
func (r *Reservation) Confirm(confirmationRef string, now time.Time) error {
	if r.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	r.Status = StatusConfirmed
	r.PaymentConfirmationRef = confirmationRef
	r.ExpiresAt = nil
	r.UpdatedAt = now.UTC()
	r.Record(ReservationConfirmed{
		ReservationID:   r.ID,
		ListingID:       r.ListingID,
		Range:           r.Range,
		Total:           r.TotalPrice,
		ConfirmationRef: confirmationRef,
		At:              r.UpdatedAt,
	})
	return nil
}

// Cancel ends a pending or confirmed reservation. Who may cancel which of the
// two is an authorization concern of the caller; the transition itself is the
// same.
func (r *Reservation) Cancel(reason string, now time.Time) error {
	switch r.Status {
	case StatusPendingPayment, StatusConfirmed:
	default:
		return ErrInvalidTransition
	}
	wasConfirmed := r.Status == StatusConfirmed
	r.Status = StatusCancelled
	r.ExpiresAt = nil
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{
		ReservationID: r.ID,
		ListingID:     r.ListingID,
		WasConfirmed:  wasConfirmed,
		Reason:        reason,
		At:            r.UpdatedAt,
	})
	return nil
}

// Expire demotes a stale pending hold. It refuses holds whose deadline has not
// passed so overlapping sweeps stay harmless.
func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	if !r.IsExpired(now) {
		return ErrHoldNotDue
	}
	r.Status = StatusExpired
	r.ExpiresAt = nil
	r.UpdatedAt = now.UTC()
	r.Record(ReservationExpired{ReservationID: r.ID, ListingID: r.ListingID, At: r.UpdatedAt})
	return nil
}

// IsExpired reports whether the hold is pending and past its deadline.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusPendingPayment && r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Repository is the durable store of reservations. Writes are single-record and
// atomic; cross-record invariants (availability) are enforced by callers.
type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	BySessionRef(ctx context.Context, sessionRef string) (*Reservation, error)
	// BlockingByListing returns the listing's reservations whose status still
	// occupies dates (everything outside {cancelled, expired}).
	BlockingByListing(ctx context.Context, id listing.ListingID) ([]*Reservation, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Reservation, error)
	// DuePending returns pending holds whose deadline lies before now.
	DuePending(ctx context.Context, now time.Time) ([]*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}
