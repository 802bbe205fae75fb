package batchq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/kv"
)

// Outcome classifies the result of one processing pass.
type Outcome int

const (
	// Processed means a batch was executed and the queue commit landed.
	Processed Outcome = iota
	// NoLockAvailable means another pass held the lock.
	// Expected and frequent when multiple schedulers target one queue.
	NoLockAvailable
	// NoJobsPending means the queue was empty. The store was not written.
	NoJobsPending
	// PartialFailure means jobs were executed but the commit never landed.
	// The executed jobs stay visible in the queue and will run again on the
	// next pass. This is the documented duplicate-execution risk of running
	// without a write-ahead dequeue marker.
	PartialFailure
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "Processed"
	case NoLockAvailable:
		return "NoLockAvailable"
	case NoJobsPending:
		return "NoJobsPending"
	case PartialFailure:
		return "PartialFailure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// JobResult records the executor verdict for one job of a batch.
type JobResult struct {
	Job Job
	Err error // nil on success
}

// Report sums up a single processing pass.
type Report struct {
	Outcome   Outcome
	Results   []JobResult // per-job verdicts in execution order
	Conflicts uint        // commit attempts lost to concurrent producers
}

// Executed returns the number of jobs handed to the executor.
func (r *Report) Executed() int {
	return len(r.Results)
}

// Failed returns the jobs whose executor call returned an error.
func (r *Report) Failed() []JobResult {
	var failed []JobResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err merges all executor failures of the pass, or nil if every job succeeded.
func (r *Report) Err() error {
	var err error
	for _, res := range r.Results {
		if res.Err != nil {
			err = multierr.Append(err, fmt.Errorf("job %s: %w", res.Job.ID, res.Err))
		}
	}
	return err
}

// Processor drains and executes batches from one queue.
//
// A pass holds no state between invocations and all coordination goes through
// the store, so any number of Processor instances may target the same queue
// from independent processes and hosts. The pass lock admits one of them at
// a time, the rest report NoLockAvailable.
type Processor struct {
	// Required components
	Store kv.Store
	Exec  Executor
	Log   *zap.Logger
	// Required config
	Keys    Keys
	Options Options

	// Metrics is optional, nil disables instrumentation.
	Metrics *ProcessorMetrics
	// Now overrides the clock in tests.
	Now func() time.Time
}

// RunOnce performs one acquire-drain-execute-commit-release cycle.
//
// The returned error reports store or codec trouble only. Executor failures
// land in the report and never abort the pass. The lock is released on every
// exit path, a failed release is logged and left to the TTL.
func (p *Processor) RunOnce(ctx context.Context) (*Report, error) {
	passID := xid.New().String()
	lock := &PassLock{
		Store:  p.Store,
		Key:    p.Keys.Lock,
		TTL:    p.Options.LockTTL,
		Holder: passID,
	}
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		p.Log.Debug("Skipping pass, lock is taken")
		return &Report{Outcome: NoLockAvailable}, nil
	}
	report, passErr := p.pass(ctx, passID)
	if err := lock.Release(ctx); err != nil {
		p.Log.Warn("Failed to release pass lock, letting it expire",
			zap.String("pass_id", passID), zap.Error(err))
	}
	if passErr != nil {
		return nil, passErr
	}
	p.Metrics.record(ctx, report)
	return report, nil
}

// pass drains one batch while the lock is held.
func (p *Processor) pass(ctx context.Context, passID string) (*Report, error) {
	report := new(Report)
	state, version, err := readQueue(ctx, p.Store, p.Keys.Queue)
	if err != nil {
		return nil, err
	}
	p.Metrics.observeDepth(state.Count())
	if state.Count() == 0 {
		report.Outcome = NoJobsPending
		return report, nil
	}
	// Select the batch prefix, FIFO order.
	target := NextBatchSize(state.Count(), p.now(), state.LastEnqueuedAt(), &p.Options)
	size := clipBatchSize(target, state.Count(), p.Options.MaxBatchSize)
	selected := state.Jobs[:size]
	p.Log.Debug("Starting pass",
		zap.String("pass_id", passID),
		zap.Uint("queue_len", state.Count()),
		zap.Uint("batch_target", target),
		zap.Uint("batch_size", size))
	// Execute the batch. A failed job is recorded and consumed all the same,
	// the queue is not a retry buffer.
	executed := make(map[string]bool, len(selected))
	for _, job := range selected {
		if executed[job.ID] {
			// Unique IDs make this unreachable with intact producers.
			// Skip rather than run twice.
			p.Log.Warn("Skipping duplicate job ID in batch",
				zap.String("pass_id", passID), zap.String("job_id", job.ID))
			continue
		}
		executed[job.ID] = true
		jobErr := p.Exec.Execute(ctx, job)
		report.Results = append(report.Results, JobResult{Job: job, Err: jobErr})
		if jobErr != nil {
			p.Log.Debug("Job failed",
				zap.String("pass_id", passID),
				zap.String("job_id", job.ID),
				zap.Error(jobErr))
		}
	}
	// Commit the residue. On conflict, re-read and keep everything except the
	// executed jobs: unselected originals stay in front, pushes that raced the
	// batch follow in their own arrival order. Nothing a producer committed is
	// ever dropped here.
	remaining := dropJobs(state.Jobs, executed)
	for attempt := uint(1); ; attempt++ {
		data, err := encodeState(&QueueState{Jobs: remaining})
		if err != nil {
			return nil, err
		}
		_, err = p.Store.CompareAndSwap(ctx, p.Keys.Queue, version, data)
		if err == nil {
			break
		} else if !errors.Is(err, kv.ErrConflict) {
			return nil, fmt.Errorf("failed to commit pass: %w", err)
		}
		report.Conflicts++
		if attempt >= p.Options.MaxRetries {
			report.Outcome = PartialFailure
			p.Log.Error("Abandoning pass commit, executed jobs stay queued",
				zap.String("pass_id", passID),
				zap.Int("executed", report.Executed()),
				zap.Uint("conflicts", report.Conflicts))
			return report, nil
		}
		var current *QueueState
		current, version, err = readQueue(ctx, p.Store, p.Keys.Queue)
		if err != nil {
			return nil, err
		}
		remaining = dropJobs(current.Jobs, executed)
		p.Log.Debug("Commit lost CAS race, merged concurrent pushes",
			zap.String("pass_id", passID),
			zap.Uint("attempt", attempt),
			zap.Uint("queue_len", current.Count()))
	}
	report.Outcome = Processed
	p.Log.Debug("Committed pass",
		zap.String("pass_id", passID),
		zap.Int("executed", report.Executed()),
		zap.Int("failed", len(report.Failed())),
		zap.Int("remaining", len(remaining)))
	return report, nil
}

// clipBatchSize bounds the advisory target to [1, max] and to the available jobs.
func clipBatchSize(target, available, max uint) uint {
	if target > max {
		target = max
	}
	if target < 1 {
		target = 1
	}
	if target > available {
		target = available
	}
	return target
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
