// Package stripe talks to Stripe's Checkout API over its form-encoded REST
// surface and verifies webhook signatures.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"staybook/internal/app/policies"
)

const defaultBaseURL = "https://api.stripe.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *slog.Logger
}

func NewClient(secretKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		logger:     logger,
	}
}

type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession opens a hosted payment page for the reservation total.
func (c *Client) CreateCheckoutSession(ctx context.Context, params policies.CheckoutSessionParams) (policies.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(params.Amount.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.Title)
	if params.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.Description)
	}
	if params.ImageURL != "" {
		form.Set("line_items[0][price_data][product_data][images][0]", params.ImageURL)
	}
	form.Set("metadata[reservation_id]", params.ReservationID)
	form.Set("metadata[guest_id]", params.GuestID)
	form.Set("metadata[listing_id]", params.ListingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return policies.CheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return policies.CheckoutSession{}, fmt.Errorf("stripe: create session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return policies.CheckoutSession{}, fmt.Errorf("stripe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return policies.CheckoutSession{}, fmt.Errorf("stripe: %s (%s)", apiErr.Error.Message, apiErr.Error.Type)
		}
		return policies.CheckoutSession{}, fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return policies.CheckoutSession{}, fmt.Errorf("stripe: decode session: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return policies.CheckoutSession{}, fmt.Errorf("stripe: incomplete session response")
	}
	if c.logger != nil {
		c.logger.Debug("checkout session created", "session_id", session.ID, "reservation_id", params.ReservationID)
	}
	return policies.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

var _ policies.PaymentsPort = (*Client)(nil)
