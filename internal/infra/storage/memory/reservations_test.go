package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newHold(t *testing.T, id, guestID string, createdAt time.Time) *domainreservation.Reservation {
	t.Helper()
	dr, err := daterange.New(createdAt.AddDate(0, 0, 5), createdAt.AddDate(0, 0, 8))
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          domainreservation.ReservationID(id),
		ListingID:   domainlisting.ListingID("lst-1"),
		GuestID:     guestID,
		Range:       dr,
		Guests:      2,
		NightlyRate: money.Must(800, "INR"),
		Now:         createdAt,
	})
	require.NoError(t, err)
	res.ClearEvents()
	return res
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	repo := NewReservationRepository()
	res := newHold(t, "res-1", "guest-1", day(2026, time.April, 1))
	require.NoError(t, repo.Save(context.Background(), res))

	first, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	second, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)

	require.NoError(t, first.Cancel("first writer", day(2026, time.April, 2)))
	require.NoError(t, repo.Save(context.Background(), first))

	require.NoError(t, second.Cancel("second writer", day(2026, time.April, 2)))
	assert.ErrorIs(t, repo.Save(context.Background(), second), ErrConcurrentUpdate)
}

func TestReadsReturnCopies(t *testing.T) {
	repo := NewReservationRepository()
	require.NoError(t, repo.Save(context.Background(), newHold(t, "res-1", "guest-1", day(2026, time.April, 1))))

	loaded, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	require.NoError(t, loaded.Cancel("never saved", day(2026, time.April, 2)))

	fresh, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusPendingPayment, fresh.Status)
}

func TestBySessionRef(t *testing.T) {
	repo := NewReservationRepository()
	res := newHold(t, "res-1", "guest-1", day(2026, time.April, 1))
	require.NoError(t, res.AttachPaymentSession("cs_1", day(2026, time.April, 1)))
	require.NoError(t, repo.Save(context.Background(), res))

	found, err := repo.BySessionRef(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.ReservationID("res-1"), found.ID)

	_, err = repo.BySessionRef(context.Background(), "cs_other")
	assert.ErrorIs(t, err, domainreservation.ErrNotFound)

	_, err = repo.BySessionRef(context.Background(), "")
	assert.ErrorIs(t, err, domainreservation.ErrNotFound)
}

func TestBlockingByListingAndDuePending(t *testing.T) {
	repo := NewReservationRepository()
	ctx := context.Background()

	pending := newHold(t, "res-pending", "guest-1", day(2026, time.April, 1))
	require.NoError(t, repo.Save(ctx, pending))

	cancelled := newHold(t, "res-cancelled", "guest-2", day(2026, time.April, 1))
	require.NoError(t, cancelled.Cancel("test", day(2026, time.April, 1)))
	cancelled.ClearEvents()
	require.NoError(t, repo.Save(ctx, cancelled))

	blocking, err := repo.BlockingByListing(ctx, "lst-1")
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, domainreservation.ReservationID("res-pending"), blocking[0].ID)

	due, err := repo.DuePending(ctx, day(2026, time.April, 1).Add(12*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.DuePending(ctx, day(2026, time.April, 3))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, domainreservation.ReservationID("res-pending"), due[0].ID)
}

func TestListByGuestNewestFirst(t *testing.T) {
	repo := NewReservationRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newHold(t, "res-old", "guest-1", day(2026, time.April, 1))))
	require.NoError(t, repo.Save(ctx, newHold(t, "res-new", "guest-1", day(2026, time.April, 5))))
	require.NoError(t, repo.Save(ctx, newHold(t, "res-other", "guest-2", day(2026, time.April, 3))))

	items, err := repo.ListByGuest(ctx, "guest-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domainreservation.ReservationID("res-new"), items[0].ID)
	assert.Equal(t, domainreservation.ReservationID("res-old"), items[1].ID)
}
