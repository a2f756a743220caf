package payments

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

func seedPendingWithSession(t *testing.T, repo *memory.ReservationRepository, id, sessionRef string) {
	t.Helper()
	now := day(2026, time.November, 1)
	dr, err := daterange.New(day(2026, time.November, 10), day(2026, time.November, 12))
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          domainreservation.ReservationID(id),
		ListingID:   domainlisting.ListingID("lst-1"),
		GuestID:     "guest-1",
		Range:       dr,
		Guests:      2,
		NightlyRate: money.Must(750, "INR"),
		Now:         now,
	})
	require.NoError(t, err)
	require.NoError(t, res.AttachPaymentSession(sessionRef, now))
	res.ClearEvents()
	require.NoError(t, repo.Save(context.Background(), res))
}

func newHandler(repo *memory.ReservationRepository) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{
		UoWFactory: memory.Factory{
			ListingsRepo:     memory.NewListingRepository(),
			ReservationsRepo: repo,
		},
		Outbox: memory.NewOutbox(),
		Now:    func() time.Time { return day(2026, time.November, 1).Add(2 * time.Hour) },
	}
}

func TestPaymentCompletedConfirmsHold(t *testing.T) {
	repo := memory.NewReservationRepository()
	seedPendingWithSession(t, repo, "res-1", "cs_abc")
	handler := newHandler(repo)

	result, err := handler.Handle(context.Background(), PaymentCompletedCommand{
		SessionRef:      "cs_abc",
		ConfirmationRef: "pi_123",
		EventID:         "evt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainreservation.StatusConfirmed), result.Status)

	stored, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, stored.Status)
	assert.Equal(t, "pi_123", stored.PaymentConfirmationRef)
	assert.Nil(t, stored.ExpiresAt)
}

func TestPaymentCompletedDuplicateDeliveryIsNoop(t *testing.T) {
	repo := memory.NewReservationRepository()
	seedPendingWithSession(t, repo, "res-1", "cs_abc")
	handler := newHandler(repo)

	first, err := handler.Handle(context.Background(), PaymentCompletedCommand{
		SessionRef: "cs_abc", ConfirmationRef: "pi_123", EventID: "evt_1",
	})
	require.NoError(t, err)

	before, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)

	second, err := handler.Handle(context.Background(), PaymentCompletedCommand{
		SessionRef: "cs_abc", ConfirmationRef: "pi_123", EventID: "evt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	after, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestPaymentCompletedUnknownSessionIsAcknowledged(t *testing.T) {
	handler := newHandler(memory.NewReservationRepository())

	result, err := handler.Handle(context.Background(), PaymentCompletedCommand{
		SessionRef: "cs_missing", EventID: "evt_9",
	})
	require.NoError(t, err)
	assert.Empty(t, result.ReservationID)
}

func TestPaymentCompletedDoesNotResurrectSettledHold(t *testing.T) {
	repo := memory.NewReservationRepository()
	seedPendingWithSession(t, repo, "res-1", "cs_abc")

	stored, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	require.NoError(t, stored.Cancel("guest backed out", day(2026, time.November, 1)))
	stored.ClearEvents()
	require.NoError(t, repo.Save(context.Background(), stored))

	handler := newHandler(repo)
	result, err := handler.Handle(context.Background(), PaymentCompletedCommand{
		SessionRef: "cs_abc", ConfirmationRef: "pi_123", EventID: "evt_2",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainreservation.StatusCancelled), result.Status)

	after, err := repo.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusCancelled, after.Status)
}
