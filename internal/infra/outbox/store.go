package outbox

import (
	"context"
	"time"
)

// EventDocument is a staged event as the worker sees it.
type EventDocument struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	Headers    map[string]string
	OccurredAt time.Time
	Attempts   int
}

// Store hands documents to exactly one worker at a time. Claim returns nil
// when nothing is ready, including documents whose retry time has not come.
type Store interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error
}
