package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain/shared/events"
)

// EventRecord is a serialized domain event staged for asynchronous publishing.
type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	Headers    map[string]string
	OccurredAt time.Time
}

// Outbox stages event records inside the current write boundary; Flush releases
// them for delivery once the boundary commits.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// EventEncoder turns a domain event into a record.
type EventEncoder interface {
	Encode(event events.Event) (EventRecord, error)
}

type JSONEventEncoder struct{}

func (JSONEventEncoder) Encode(event events.Event) (EventRecord, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{
		ID:         uuid.NewString(),
		Name:       event.EventName(),
		Aggregate:  event.AggregateID(),
		Payload:    payload,
		OccurredAt: event.OccurredAt().UTC(),
	}, nil
}

// RecordDomainEvents encodes and stages every pending event of an aggregate.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evts []events.Event) error {
	if box == nil || len(evts) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, event := range evts {
		record, err := encoder.Encode(event)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
