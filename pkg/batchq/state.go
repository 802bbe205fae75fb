package batchq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/gantryq/gantry/pkg/kv"
)

// Job is a single unit of work waiting in a queue.
type Job struct {
	ID         string    `json:"id"`
	Payload    []byte    `json:"payload,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob wraps a payload with a fresh, globally unique ID.
// The ID sticks to the job for life and is never reissued.
func NewJob(payload []byte, now time.Time) Job {
	return Job{
		ID:         xid.New().String(),
		Payload:    payload,
		EnqueuedAt: now,
	}
}

// QueueState is the value stored under the queue key:
// all pending jobs of the queue in arrival order.
//
// An empty state is a regular value, not a tombstone.
// The entry is created on first enqueue and lives on after draining.
type QueueState struct {
	Jobs []Job `json:"jobs"`
}

// Count returns the number of pending jobs.
func (s *QueueState) Count() uint {
	return uint(len(s.Jobs))
}

// LastEnqueuedAt returns the enqueue time of the newest job,
// or the zero time for an empty queue.
func (s *QueueState) LastEnqueuedAt() time.Time {
	if len(s.Jobs) == 0 {
		return time.Time{}
	}
	return s.Jobs[len(s.Jobs)-1].EnqueuedAt
}

func encodeState(state *QueueState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*QueueState, error) {
	state := new(QueueState)
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("invalid queue state: %w", err)
	}
	return state, nil
}

// readQueue loads a queue entry, treating an absent key as an empty queue
// at kv.NoVersion. Committing against kv.NoVersion then creates the entry.
func readQueue(ctx context.Context, store kv.Store, key string) (*QueueState, kv.Version, error) {
	data, version, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return new(QueueState), kv.NoVersion, nil
	} else if err != nil {
		return nil, kv.NoVersion, fmt.Errorf("failed to read queue: %w", err)
	}
	state, err := decodeState(data)
	if err != nil {
		return nil, kv.NoVersion, err
	}
	return state, version, nil
}

// dropJobs returns the jobs whose IDs are not in exclude, preserving order.
func dropJobs(jobs []Job, exclude map[string]bool) []Job {
	kept := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if !exclude[job.ID] {
			kept = append(kept, job)
		}
	}
	return kept
}
