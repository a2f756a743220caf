package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func newHold(t *testing.T, createdAt time.Time) *domainreservation.Reservation {
	t.Helper()
	dr, err := daterange.New(createdAt.AddDate(0, 0, 5), createdAt.AddDate(0, 0, 8))
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          "res-1",
		ListingID:   "lst-1",
		GuestID:     "guest-1",
		Range:       dr,
		Guests:      2,
		NightlyRate: money.Must(800, "INR"),
		Now:         createdAt,
	})
	require.NoError(t, err)
	res.ClearEvents()
	return res
}

func TestDocumentKeepsPendingDeadline(t *testing.T) {
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	res := newHold(t, now)

	raw, err := bson.Marshal(newReservationDocument(res))
	require.NoError(t, err)

	val := bson.Raw(raw).Lookup("expires_at")
	require.Equal(t, bson.TypeDateTime, val.Type)
	assert.Equal(t, now.Add(24*time.Hour), val.Time().UTC())
}

// A settled reservation must overwrite the stored deadline with null: the
// update is a plain $set of the whole document, so a missing field would leave
// the pending deadline behind and the TTL index would reap confirmed records.
func TestDocumentNullsDeadlineOnceSettled(t *testing.T) {
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	res := newHold(t, now)
	require.NoError(t, res.AttachPaymentSession("cs_1", now))
	require.NoError(t, res.Confirm("pi_1", now))
	res.ClearEvents()
	require.Nil(t, res.ExpiresAt)

	raw, err := bson.Marshal(newReservationDocument(res))
	require.NoError(t, err)

	val := bson.Raw(raw).Lookup("expires_at")
	assert.Equal(t, bson.TypeNull, val.Type)

	var doc reservationDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Nil(t, doc.ExpiresAt)
	assert.Nil(t, doc.toAggregate().ExpiresAt)
}

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	res := newHold(t, now)
	require.NoError(t, res.AttachPaymentSession("cs_1", now))

	raw, err := bson.Marshal(newReservationDocument(res))
	require.NoError(t, err)
	var doc reservationDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))

	agg := doc.toAggregate()
	assert.Equal(t, res.ID, agg.ID)
	assert.Equal(t, res.Range.CheckIn, agg.Range.CheckIn)
	assert.Equal(t, res.Range.CheckOut, agg.Range.CheckOut)
	assert.Equal(t, res.TotalPrice, agg.TotalPrice)
	assert.Equal(t, res.Status, agg.Status)
	assert.Equal(t, res.PaymentSessionRef, agg.PaymentSessionRef)
	require.NotNil(t, agg.ExpiresAt)
	assert.Equal(t, *res.ExpiresAt, *agg.ExpiresAt)
}
