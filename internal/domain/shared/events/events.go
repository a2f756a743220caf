package events

import "time"

// Event is a fact recorded by an aggregate during a state transition.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder collects pending events; aggregates embed it by value.
type EventRecorder struct {
	pending []Event
}

// Record appends an event to the pending list.
func (r *EventRecorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// PendingEvents returns the events recorded since the last ClearEvents call.
func (r *EventRecorder) PendingEvents() []Event {
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out
}

// ClearEvents drops all pending events, typically after they were handed to the
// outbox.
func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
