// Package dupwatch flags jobs that get executed more than once.
//
// The queue promises at-least-once delivery: a pass that executed its batch
// but could not commit leaves the jobs queued, and a later pass runs them
// again. Watch wraps an Executor and remembers recently executed job IDs in
// a bounded LRU window, logging and counting every repeat it sees. It only
// observes, a repeated job still runs.
package dupwatch

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/batchq"
)

// Watch is an Executor middleware that detects repeated job executions.
type Watch struct {
	// Required components
	Next    batchq.Executor
	Log     *zap.Logger
	Cache   *lru.Cache
	Metrics *WatchMetrics
	// Required config
	TTL time.Duration // how long an ID counts as recently executed
	// Now overrides the clock in tests.
	Now func() time.Time
}

var _ batchq.Executor = (*Watch)(nil)

type watchEntry struct {
	executedAt time.Time
}

// Execute hands the job to the wrapped executor, warning if its ID already
// ran within the TTL window.
func (w *Watch) Execute(ctx context.Context, job batchq.Job) error {
	now := w.now()
	if entryI, ok := w.Cache.Get(job.ID); ok {
		entry := entryI.(*watchEntry)
		if now.Sub(entry.executedAt) <= w.TTL {
			w.Log.Warn("Job executed again",
				zap.String("job_id", job.ID),
				zap.Duration("since_last", now.Sub(entry.executedAt)))
			w.Metrics.repeats.Add(ctx, 1)
		} else {
			w.Cache.Remove(job.ID)
			w.gc(now) // Also prune other expired entries while we're at it.
		}
	}
	w.Cache.Add(job.ID, &watchEntry{executedAt: now})
	return w.Next.Execute(ctx, job)
}

// gc removes expired entries from the old end of the cache.
func (w *Watch) gc(now time.Time) {
	for {
		key, entryI, ok := w.Cache.GetOldest()
		if !ok {
			return
		}
		entry := entryI.(*watchEntry)
		if now.Sub(entry.executedAt) <= w.TTL {
			return
		}
		w.Cache.Remove(key)
	}
}

func (w *Watch) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// WatchMetrics counts the repeats a Watch observed.
type WatchMetrics struct {
	repeats metric.Int64Counter
}

// NewWatchMetrics registers the watch instruments on a meter.
func NewWatchMetrics(m metric.Meter) (*WatchMetrics, error) {
	metrics := new(WatchMetrics)
	var err error
	metrics.repeats, err = m.NewInt64Counter("dupwatch_repeat_executions")
	if err != nil {
		return nil, err
	}
	return metrics, nil
}
