package batchq

import (
	"math"
	"time"
)

// NextBatchSize computes the target batch size for the next processing pass.
//
// A queue that has not seen a new job for longer than the idle threshold is
// flushed whole, even past MaxBatchSize. Otherwise the target grows
// multiplicatively with queue depth and is capped at MaxBatchSize.
//
// The target is advisory. The processor clips it to [1, MaxBatchSize] and to
// the jobs actually available, so an oversized idle flush drains across
// multiple passes and an undersized queue never fabricates work.
func NextBatchSize(count uint, now, lastJob time.Time, opts *Options) uint {
	if !lastJob.IsZero() && now.Sub(lastJob) > opts.IdleThreshold {
		if count > opts.MinBatchSize {
			return count
		}
		return opts.MinBatchSize
	}
	target := uint(math.Floor(float64(count) * opts.GrowthFactor))
	if target > opts.MaxBatchSize {
		target = opts.MaxBatchSize
	}
	if target < opts.MinBatchSize {
		target = opts.MinBatchSize
	}
	return target
}
