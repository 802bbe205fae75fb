package batchq

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// outcomeKey tags the pass counter with the pass outcome.
const outcomeKey = attribute.Key("outcome")

// ProcessorMetrics instruments processing passes.
//
// One instance is shared by all processors of a process; the instruments
// aggregate across queues.
type ProcessorMetrics struct {
	passes      metric.Int64Counter
	jobs        metric.Int64Counter
	jobFailures metric.Int64Counter
	conflicts   metric.Int64Counter
	queueDepth  int64
}

// NewProcessorMetrics registers the processor instruments on a meter.
func NewProcessorMetrics(m metric.Meter) (*ProcessorMetrics, error) {
	metrics := new(ProcessorMetrics)
	var err error
	metrics.passes, err = m.NewInt64Counter("batchq_passes")
	if err != nil {
		return nil, err
	}
	metrics.jobs, err = m.NewInt64Counter("batchq_jobs_executed")
	if err != nil {
		return nil, err
	}
	metrics.jobFailures, err = m.NewInt64Counter("batchq_job_failures")
	if err != nil {
		return nil, err
	}
	metrics.conflicts, err = m.NewInt64Counter("batchq_commit_conflicts")
	if err != nil {
		return nil, err
	}
	if _, err := m.NewInt64UpDownSumObserver("batchq_queue_depth", func(_ context.Context, res metric.Int64ObserverResult) {
		res.Observe(atomic.LoadInt64(&metrics.queueDepth))
	}); err != nil {
		return nil, err
	}
	return metrics, nil
}

// record counts one finished pass. Safe on a nil receiver.
func (m *ProcessorMetrics) record(ctx context.Context, report *Report) {
	if m == nil {
		return
	}
	m.passes.Add(ctx, 1, outcomeKey.String(report.Outcome.String()))
	m.jobs.Add(ctx, int64(report.Executed()))
	m.jobFailures.Add(ctx, int64(len(report.Failed())))
	m.conflicts.Add(ctx, int64(report.Conflicts))
}

// observeDepth publishes the queue depth seen by the most recent pass.
func (m *ProcessorMetrics) observeDepth(count uint) {
	if m == nil {
		return
	}
	atomic.StoreInt64(&m.queueDepth, int64(count))
}
