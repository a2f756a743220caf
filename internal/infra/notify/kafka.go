// Package notify publishes guest-facing notification requests for a downstream
// messaging service to deliver.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"staybook/internal/app/policies"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
)

const topic = "reservation.notifications.v1"

// Producer matches the broker publish surface.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

type KafkaNotifier struct {
	Producer    Producer
	TopicPrefix string
}

type notification struct {
	Kind          string `json:"kind"`
	ReservationID string `json:"reservation_id"`
	GuestID       string `json:"guest_id"`
	ListingID     string `json:"listing_id"`
	ListingTitle  string `json:"listing_title,omitempty"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	TotalAmount   int64  `json:"total_amount"`
	TotalCurrency string `json:"total_currency"`
	SentAt        string `json:"sent_at"`
}

func (n *KafkaNotifier) NotifyConfirmed(ctx context.Context, r *domainreservation.Reservation, l *domainlisting.Listing) error {
	return n.publish(ctx, "reservation_confirmed", r, l)
}

func (n *KafkaNotifier) NotifyCancelled(ctx context.Context, r *domainreservation.Reservation, l *domainlisting.Listing) error {
	return n.publish(ctx, "reservation_cancelled", r, l)
}

func (n *KafkaNotifier) publish(ctx context.Context, kind string, r *domainreservation.Reservation, l *domainlisting.Listing) error {
	note := notification{
		Kind:          kind,
		ReservationID: string(r.ID),
		GuestID:       r.GuestID,
		ListingID:     string(r.ListingID),
		CheckIn:       r.Range.CheckIn.Format(time.RFC3339),
		CheckOut:      r.Range.CheckOut.Format(time.RFC3339),
		TotalAmount:   r.TotalPrice.Amount,
		TotalCurrency: r.TotalPrice.Currency,
		SentAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if l != nil {
		note.ListingTitle = l.Title
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	headers := map[string]string{"content-type": "application/json"}
	return n.Producer.Publish(ctx, n.topic(), string(r.ID), payload, headers)
}

func (n *KafkaNotifier) topic() string {
	if n.TopicPrefix != "" {
		return n.TopicPrefix + topic
	}
	return topic
}

var _ policies.NotifierPort = (*KafkaNotifier)(nil)
