package policies

import (
	"context"
	"errors"

	"staybook/internal/domain/shared/money"
)

// ErrPaymentSession wraps payment-provider failures during checkout. The hold
// created before the provider call stays pending and self-heals via expiry.
var ErrPaymentSession = errors.New("policies: payment session could not be created")

// CheckoutSessionParams describe the hosted payment page for one hold.
type CheckoutSessionParams struct {
	ReservationID string
	GuestID       string
	ListingID     string
	Amount        money.Money
	Title         string
	Description   string
	ImageURL      string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's session handle and redirect target.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentsPort starts hosted checkout sessions with the external provider.
type PaymentsPort interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
}
