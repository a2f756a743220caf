package sweep

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
	"staybook/internal/infra/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedHold(t *testing.T, repo *memory.ReservationRepository, id string, createdAt time.Time) *domainreservation.Reservation {
	t.Helper()
	dr, err := daterange.New(createdAt.AddDate(0, 0, 7), createdAt.AddDate(0, 0, 10))
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          domainreservation.ReservationID(id),
		ListingID:   domainlisting.ListingID("lst-1"),
		GuestID:     "guest-1",
		Range:       dr,
		Guests:      2,
		NightlyRate: money.Must(500, "INR"),
		Now:         createdAt,
	})
	require.NoError(t, err)
	res.ClearEvents()
	require.NoError(t, repo.Save(context.Background(), res))
	return res
}

func newSweeper(repo *memory.ReservationRepository, now time.Time) *Sweeper {
	return &Sweeper{
		UoWFactory: memory.Factory{
			ListingsRepo:     memory.NewListingRepository(),
			ReservationsRepo: repo,
		},
		Outbox: memory.NewOutbox(),
		Now:    func() time.Time { return now },
	}
}

func TestSweepOnceExpiresOnlyDueHolds(t *testing.T) {
	repo := memory.NewReservationRepository()
	seedHold(t, repo, "res-stale", day(2026, time.October, 1))
	seedHold(t, repo, "res-fresh", day(2026, time.October, 2))

	confirmed := seedHold(t, repo, "res-paid", day(2026, time.October, 1))
	require.NoError(t, confirmed.Confirm("pi_1", day(2026, time.October, 1)))
	confirmed.ClearEvents()
	require.NoError(t, repo.Save(context.Background(), confirmed))

	// 25 hours after the first hold was placed: only it is past the deadline.
	sweeper := newSweeper(repo, day(2026, time.October, 2).Add(time.Hour))
	count, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stale, err := repo.ByID(context.Background(), "res-stale")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusExpired, stale.Status)

	fresh, err := repo.ByID(context.Background(), "res-fresh")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusPendingPayment, fresh.Status)

	paid, err := repo.ByID(context.Background(), "res-paid")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, paid.Status)
}

func TestSweepOnceIsIdempotent(t *testing.T) {
	repo := memory.NewReservationRepository()
	seedHold(t, repo, "res-stale", day(2026, time.October, 1))

	sweeper := newSweeper(repo, day(2026, time.October, 3))
	count, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSweepOnceEmptyStore(t *testing.T) {
	sweeper := newSweeper(memory.NewReservationRepository(), day(2026, time.October, 3))
	count, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
