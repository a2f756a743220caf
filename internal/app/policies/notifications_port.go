package policies

import (
	"context"

	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
)

// NotifierPort delivers guest-facing notifications. Calls are fire-and-forget:
// failures are logged by callers and never propagate to the triggering request.
type NotifierPort interface {
	NotifyConfirmed(ctx context.Context, r *domainreservation.Reservation, l *domainlisting.Listing) error
	NotifyCancelled(ctx context.Context, r *domainreservation.Reservation, l *domainlisting.Listing) error
}
