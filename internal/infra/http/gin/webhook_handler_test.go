package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	paymentsapp "staybook/internal/app/handlers/payments"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/payments/stripe"
	"staybook/internal/infra/storage/memory"
)

const webhookSecret = "whsec_test"

type webhookFixture struct {
	router       *gin.Engine
	reservations *memory.ReservationRepository
	now          time.Time
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &webhookFixture{
		reservations: memory.NewReservationRepository(),
		now:          time.Date(2026, time.November, 1, 10, 0, 0, 0, time.UTC),
	}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, paymentsapp.PaymentCompletedCommand{}.Key(), &paymentsapp.PaymentCompletedHandler{
		UoWFactory: memory.Factory{
			ListingsRepo:     memory.NewListingRepository(),
			ReservationsRepo: f.reservations,
		},
		Outbox: memory.NewOutbox(),
		Now:    func() time.Time { return f.now },
	})

	handler := WebhookHandler{
		Commands: bus,
		Verifier: stripe.SignatureVerifier{Secret: webhookSecret, Now: func() time.Time { return f.now }},
	}
	f.router = gin.New()
	f.router.POST("/api/v1/payments/webhook", handler.Receive)
	return f
}

func (f *webhookFixture) seedHold(t *testing.T, sessionRef string) {
	t.Helper()
	dr, err := daterange.New(f.now.AddDate(0, 0, 7), f.now.AddDate(0, 0, 9))
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:          "res-1",
		ListingID:   domainlisting.ListingID("lst-1"),
		GuestID:     "guest-1",
		Range:       dr,
		Guests:      2,
		NightlyRate: money.Must(900, "INR"),
		Now:         f.now,
	})
	require.NoError(t, err)
	require.NoError(t, res.AttachPaymentSession(sessionRef, f.now))
	res.ClearEvents()
	require.NoError(t, f.reservations.Save(context.Background(), res))
}

func (f *webhookFixture) post(t *testing.T, payload []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(payload))
	if sign {
		req.Header.Set("Stripe-Signature", stripe.Sign(webhookSecret, payload, f.now))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCompletedEvent(sessionRef, paymentIntent string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionRef,
				"payment_intent": paymentIntent,
			},
		},
	})
	return payload
}

func TestWebhookConfirmsReservation(t *testing.T) {
	f := newWebhookFixture(t)
	f.seedHold(t, "cs_abc")

	rec := f.post(t, sessionCompletedEvent("cs_abc", "pi_123"), true)
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.reservations.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, stored.Status)
	assert.Equal(t, "pi_123", stored.PaymentConfirmationRef)
}

func TestWebhookRejectsUnsignedPayload(t *testing.T) {
	f := newWebhookFixture(t)
	f.seedHold(t, "cs_abc")

	rec := f.post(t, sessionCompletedEvent("cs_abc", "pi_123"), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := f.reservations.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusPendingPayment, stored.Status)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	f := newWebhookFixture(t)
	f.seedHold(t, "cs_abc")

	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_2",
		"type": "payment_intent.created",
	})
	rec := f.post(t, payload, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.reservations.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusPendingPayment, stored.Status)
}

func TestWebhookAcknowledgesUnknownSession(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(t, sessionCompletedEvent("cs_missing", "pi_1"), true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRedeliveryStaysIdempotent(t *testing.T) {
	f := newWebhookFixture(t)
	f.seedHold(t, "cs_abc")

	for i := 0; i < 3; i++ {
		rec := f.post(t, sessionCompletedEvent("cs_abc", "pi_123"), true)
		require.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("delivery %d", i+1))
	}
	stored, err := f.reservations.ByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, stored.Status)
}
