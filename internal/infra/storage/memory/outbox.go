package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

// Outbox stages event records during a command and hands them to the delivery
// worker once the command flushes. It serves both the application staging port
// and the worker's store.
type Outbox struct {
	mu     sync.Mutex
	staged []appoutbox.EventRecord
	ready  []outboxEntry
}

type outboxEntry struct {
	doc     infraoutbox.EventDocument
	retryAt time.Time
	claimed bool
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staged = append(o.staged, record)
	return nil
}

// Flush releases staged records for delivery.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, record := range o.staged {
		o.ready = append(o.ready, outboxEntry{
			doc: infraoutbox.EventDocument{
				ID:         record.ID,
				Name:       record.Name,
				Aggregate:  record.Aggregate,
				Payload:    record.Payload,
				Headers:    record.Headers,
				OccurredAt: record.OccurredAt,
			},
		})
	}
	o.staged = nil
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for i := range o.ready {
		entry := &o.ready[i]
		if entry.claimed || now.Before(entry.retryAt) {
			continue
		}
		entry.claimed = true
		entry.doc.Attempts++
		doc := entry.doc
		return &doc, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ready {
		if o.ready[i].doc.ID == id {
			o.ready = append(o.ready[:i], o.ready[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ready {
		if o.ready[i].doc.ID == id {
			o.ready[i].claimed = false
			o.ready[i].retryAt = retryAt
			return nil
		}
	}
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Store = (*Outbox)(nil)
