package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/policies"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type stubPayments struct {
	mu       sync.Mutex
	calls    []policies.CheckoutSessionParams
	err      error
	sessions int
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, params policies.CheckoutSessionParams) (policies.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, params)
	if s.err != nil {
		return policies.CheckoutSession{}, s.err
	}
	s.sessions++
	return policies.CheckoutSession{
		ID:  "cs_test_" + params.ReservationID,
		URL: "https://pay.example/s/" + params.ReservationID,
	}, nil
}

type fixture struct {
	listings     *memory.ListingRepository
	reservations *memory.ReservationRepository
	payments     *stubPayments
	handler      *CreateCheckoutHandler
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		listings:     memory.NewListingRepository(),
		reservations: memory.NewReservationRepository(),
		payments:     &stubPayments{},
		now:          day(2026, time.September, 1),
	}
	factory := memory.Factory{
		ListingsRepo:     f.listings,
		ReservationsRepo: f.reservations,
	}
	f.handler = &CreateCheckoutHandler{
		UoWFactory: factory,
		Payments:   f.payments,
		Locks:      memory.NewListingLocker(),
		Outbox:     memory.NewOutbox(),
		BaseURL:    "https://staybook.example",
		HoldTTL:    24 * time.Hour,
		Now:        func() time.Time { return f.now },
	}

	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:          "lst-1",
		Host:        "host-1",
		Title:       "Lakeside Flat",
		City:        "Pune",
		Country:     "IN",
		NightlyRate: money.Must(1000, "INR"),
		GuestsLimit: 4,
		Now:         f.now,
	})
	require.NoError(t, err)
	require.NoError(t, f.listings.Save(context.Background(), l))
	return f
}

func (f *fixture) command(checkIn, checkOut time.Time) CreateCheckoutCommand {
	return CreateCheckoutCommand{
		CommandID: "res-" + checkIn.Format("0102"),
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    2,
	}
}

func TestCreateCheckoutPlacesHoldAndStartsSession(t *testing.T) {
	f := newFixture(t)

	result, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/s/res-0910", result.PaymentSessionURL)
	assert.Equal(t, int64(3000), result.Reservation.Total.Amount)
	assert.Equal(t, 3, result.Reservation.Nights)
	assert.Equal(t, string(domainreservation.StatusPendingPayment), result.Reservation.Status)

	stored, err := f.reservations.ByID(context.Background(), "res-0910")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_res-0910", stored.PaymentSessionRef)
	require.NotNil(t, stored.ExpiresAt)
	assert.Equal(t, f.now.Add(24*time.Hour), *stored.ExpiresAt)

	require.Len(t, f.payments.calls, 1)
	call := f.payments.calls[0]
	assert.Equal(t, int64(3000), call.Amount.Amount)
	assert.Contains(t, call.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestCreateCheckoutRejectsOverlappingDates(t *testing.T) {
	f := newFixture(t)

	_, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.NoError(t, err)

	cmd := f.command(day(2026, time.September, 12), day(2026, time.September, 15))
	cmd.CommandID = "res-second"
	_, err = f.handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainreservation.ErrDatesUnavailable)

	// Back-to-back is fine: checkout day equals the next check-in day.
	cmd = f.command(day(2026, time.September, 13), day(2026, time.September, 15))
	cmd.CommandID = "res-third"
	_, err = f.handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)
}

func TestCreateCheckoutRejectsOversizedParty(t *testing.T) {
	f := newFixture(t)

	// The listing sleeps 4; the global policy alone would allow 5.
	cmd := f.command(day(2026, time.September, 10), day(2026, time.September, 13))
	cmd.Guests = 5
	_, err := f.handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainlisting.ErrTooManyGuests)
	assert.Empty(t, f.payments.calls)
}

func TestCreateCheckoutSweepsStaleHoldInline(t *testing.T) {
	f := newFixture(t)

	_, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.NoError(t, err)

	// The first hold's deadline passes without payment.
	f.now = f.now.Add(25 * time.Hour)

	cmd := f.command(day(2026, time.September, 11), day(2026, time.September, 14))
	cmd.CommandID = "res-retry"
	cmd.GuestID = "guest-2"
	result, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "guest-2", result.Reservation.GuestID)

	stale, err := f.reservations.ByID(context.Background(), "res-0910")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusExpired, stale.Status)
	assert.Nil(t, stale.ExpiresAt)
}

func TestCreateCheckoutPaymentFailureLeavesHold(t *testing.T) {
	f := newFixture(t)
	f.payments.err = errors.New("gateway timeout")

	_, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.Error(t, err)
	assert.ErrorIs(t, err, policies.ErrPaymentSession)

	// The hold stays and keeps blocking its dates until it expires on its own.
	stored, err := f.reservations.ByID(context.Background(), "res-0910")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusPendingPayment, stored.Status)
	assert.Empty(t, stored.PaymentSessionRef)
}

func TestCreateCheckoutSerializesConcurrentRequests(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := f.command(day(2026, time.September, 10), day(2026, time.September, 13))
			cmd.CommandID = "res-race-" + string(rune('a'+i))
			cmd.GuestID = "guest-race"
			_, errs[i] = f.handler.Handle(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domainreservation.ErrDatesUnavailable)
		}
	}
	assert.Equal(t, 1, won)
}

func TestAbortCheckout(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.NoError(t, err)

	abort := &AbortCheckoutHandler{
		UoWFactory: memory.Factory{ListingsRepo: f.listings, ReservationsRepo: f.reservations},
		Outbox:     memory.NewOutbox(),
		Now:        func() time.Time { return f.now },
	}

	_, err = abort.Handle(context.Background(), AbortCheckoutCommand{ReservationID: "res-0910", ActorID: "someone-else"})
	assert.ErrorIs(t, err, ErrNotHolder)

	result, err := abort.Handle(context.Background(), AbortCheckoutCommand{ReservationID: "res-0910", ActorID: "guest-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domainreservation.StatusCancelled), result.Status)
}

func TestAbortCheckoutRejectsConfirmedReservation(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler.Handle(context.Background(), f.command(day(2026, time.September, 10), day(2026, time.September, 13)))
	require.NoError(t, err)

	res, err := f.reservations.ByID(context.Background(), "res-0910")
	require.NoError(t, err)
	require.NoError(t, res.Confirm("pi_paid", f.now))
	res.ClearEvents()
	require.NoError(t, f.reservations.Save(context.Background(), res))

	abort := &AbortCheckoutHandler{
		UoWFactory: memory.Factory{ListingsRepo: f.listings, ReservationsRepo: f.reservations},
		Outbox:     memory.NewOutbox(),
		Now:        func() time.Time { return f.now },
	}

	// Settled money is not released by the guest backing out of a stale
	// checkout page; that path is reserved for admins.
	_, err = abort.Handle(context.Background(), AbortCheckoutCommand{ReservationID: "res-0910", ActorID: "guest-1"})
	assert.ErrorIs(t, err, domainreservation.ErrInvalidTransition)

	stored, err := f.reservations.ByID(context.Background(), "res-0910")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, stored.Status)
}
