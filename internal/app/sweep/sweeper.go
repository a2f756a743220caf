// Package sweep settles reservation holds whose payment deadline passed.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
)

// Sweeper expires every pending reservation whose hold deadline is behind the
// given clock. A record that was confirmed or cancelled between the lookup and
// the write is skipped, not failed: the sweep only ever settles stale holds.
type Sweeper struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

// SweepOnce runs a single pass and returns how many holds it expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return 0, err
	}
	managed := cleanup != nil
	committed := false
	if managed {
		defer func() {
			if !committed {
				cleanup()
			}
		}()
	}

	now := s.now()
	due, err := unit.Reservations().DuePending(execCtx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range due {
		if err := res.Expire(now); err != nil {
			// Raced with a confirm or cancel; nothing stale left to settle.
			continue
		}
		if err := unit.Reservations().Save(execCtx, res); err != nil {
			return expired, err
		}
		pending := res.PendingEvents()
		res.ClearEvents()
		if err := outbox.RecordDomainEvents(execCtx, s.Outbox, s.encoder(), pending); err != nil {
			return expired, err
		}
		expired++
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return expired, err
		}
		committed = true
	}
	return expired, nil
}

func (s *Sweeper) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
