package agents

import (
	"context"
	"time"
)

// Pacer is waited on between two consecutive page fetches of a session.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer waits a fixed interval, or until ctx is done.
type IntervalPacer struct {
	Interval time.Duration
}

func (p IntervalPacer) Wait(ctx context.Context) error {
	if p.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
