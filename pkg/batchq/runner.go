package batchq

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Runner triggers processing passes in a loop.
//
// A pass that committed work is followed immediately by the next one, so a
// deep queue drains at full speed. Passes that made no progress back off
// exponentially up to MaxInterval. A partial failure also backs off, giving
// the contending producers room before the executed jobs are retried.
type Runner struct {
	// Required components
	Processor *Processor
	Log       *zap.Logger
	// Required config
	MinInterval time.Duration // first delay after a pass without progress
	MaxInterval time.Duration // backoff ceiling
}

// Run triggers passes until the context is canceled.
// Store and codec errors abort the loop, everything else is paced and logged.
func (r *Runner) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.MinInterval
	bo.MaxInterval = r.MaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := r.Processor.RunOnce(ctx)
		if err != nil {
			return err
		}
		if report.Outcome == Processed {
			bo.Reset()
			continue
		}
		delay := bo.NextBackOff()
		r.Log.Debug("Pass made no progress, backing off",
			zap.Stringer("outcome", report.Outcome),
			zap.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
