package ginserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	paymentsapp "staybook/internal/app/handlers/payments"
)

const (
	signatureHeader       = "Stripe-Signature"
	eventSessionCompleted = "checkout.session.completed"
	maxWebhookBody        = 1 << 20
)

// SignatureVerifier checks a webhook payload against its signature header.
type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

// WebhookHandler receives provider payment events. The body must be read raw:
// signature verification covers the exact bytes sent, not a re-serialization.
type WebhookHandler struct {
	Commands commands.Bus
	Verifier SignatureVerifier
	Logger   *slog.Logger
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

func (h WebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if h.Verifier != nil {
		if err := h.Verifier.Verify(payload, c.GetHeader(signatureHeader)); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("webhook signature rejected", "error", err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	if event.Type != eventSessionCompleted {
		// Not subscribed to anything else; acknowledge and move on.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	cmd := paymentsapp.PaymentCompletedCommand{
		SessionRef:      event.Data.Object.ID,
		ConfirmationRef: event.Data.Object.PaymentIntent,
		EventID:         event.ID,
	}
	if _, err := commands.Dispatch[paymentsapp.PaymentCompletedCommand, *paymentsapp.PaymentCompletedResult](c.Request.Context(), h.Commands, cmd); err != nil {
		// A non-2xx makes the provider redeliver, which is what we want for
		// transient store failures.
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

var _ WebhookHTTP = WebhookHandler{}
