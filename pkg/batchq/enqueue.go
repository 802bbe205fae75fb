package batchq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/kv"
)

// ErrEnqueueFailed marks a push whose CAS attempts were exhausted.
// The job was not stored and resubmitting it is safe.
var ErrEnqueueFailed = errors.New("enqueue failed")

// Producer appends jobs to a queue.
//
// It takes no locks and never waits on the processor, only on its own bounded
// retry loop. Any number of producers may push to the same queue concurrently,
// across goroutines and across processes.
type Producer struct {
	// Required components
	Store kv.Store
	Log   *zap.Logger
	// Required config
	Keys    Keys
	Options Options
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Push appends a payload to the queue and returns the assigned job ID.
//
// The ID is generated once per call and reused across CAS retries, so a push
// that eventually commits is stored under exactly one ID.
func (p *Producer) Push(ctx context.Context, payload []byte) (string, error) {
	job := NewJob(payload, p.now())
	for attempt := uint(1); attempt <= p.Options.MaxRetries; attempt++ {
		state, version, err := readQueue(ctx, p.Store, p.Keys.Queue)
		if err != nil {
			return "", err
		}
		state.Jobs = append(state.Jobs, job)
		data, err := encodeState(state)
		if err != nil {
			return "", err
		}
		_, err = p.Store.CompareAndSwap(ctx, p.Keys.Queue, version, data)
		if errors.Is(err, kv.ErrConflict) {
			p.Log.Debug("Push lost CAS race, retrying",
				zap.String("job_id", job.ID),
				zap.Uint("attempt", attempt))
			continue
		} else if err != nil {
			return "", fmt.Errorf("failed to commit push: %w", err)
		}
		p.Log.Debug("Pushed job",
			zap.String("job_id", job.ID),
			zap.Uint("queue_len", state.Count()))
		return job.ID, nil
	}
	return "", fmt.Errorf("%w: gave up after %d attempts", ErrEnqueueFailed, p.Options.MaxRetries)
}

// PushAll appends a batch of payloads in a single commit.
//
// Every payload becomes its own job with its own ID, appended in argument
// order behind the existing queue tail. The batch commits atomically: after
// an ErrEnqueueFailed none of the jobs are stored.
func (p *Producer) PushAll(ctx context.Context, payloads [][]byte) ([]string, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	now := p.now()
	jobs := make([]Job, len(payloads))
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		jobs[i] = NewJob(payload, now)
		ids[i] = jobs[i].ID
	}
	for attempt := uint(1); attempt <= p.Options.MaxRetries; attempt++ {
		state, version, err := readQueue(ctx, p.Store, p.Keys.Queue)
		if err != nil {
			return nil, err
		}
		state.Jobs = append(state.Jobs, jobs...)
		data, err := encodeState(state)
		if err != nil {
			return nil, err
		}
		_, err = p.Store.CompareAndSwap(ctx, p.Keys.Queue, version, data)
		if errors.Is(err, kv.ErrConflict) {
			p.Log.Debug("PushAll lost CAS race, retrying",
				zap.Int("jobs", len(jobs)),
				zap.Uint("attempt", attempt))
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to commit push: %w", err)
		}
		p.Log.Debug("Pushed jobs",
			zap.Int("jobs", len(jobs)),
			zap.Uint("queue_len", state.Count()))
		return ids, nil
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrEnqueueFailed, p.Options.MaxRetries)
}

func (p *Producer) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
