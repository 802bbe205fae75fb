package batchq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap/zaptest"

	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/memkv"
)

func TestRunnerDrains(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memkv.New()
	log := zaptest.NewLogger(t)
	keys := KeysForPrefix("T")
	opts := DefaultOptions
	opts.MinBatchSize = 1
	opts.MaxBatchSize = 2
	producer := &Producer{Store: store, Log: log, Keys: keys, Options: opts}
	pushed := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, err := producer.Push(ctx, []byte("x"))
		require.NoError(t, err)
		pushed[id] = true
	}

	executedC := make(chan string, 16)
	exec := ExecutorFunc(func(_ context.Context, job Job) error {
		executedC <- job.ID
		return nil
	})
	metrics, err := NewProcessorMetrics(metric.Meter{})
	require.NoError(t, err)
	runner := &Runner{
		Processor: &Processor{
			Store:   store,
			Exec:    exec,
			Log:     log,
			Keys:    keys,
			Options: opts,
			Metrics: metrics,
		},
		Log:         log,
		MinInterval: time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
	}
	runErrC := make(chan error, 1)
	go func() { runErrC <- runner.Run(ctx) }()
	// Every job comes out, across multiple capped passes.
	total := len(pushed)
	for i := 0; i < total; i++ {
		select {
		case id := <-executedC:
			assert.True(t, pushed[id], "unknown job %s", id)
			delete(pushed, id)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Empty(t, pushed)
	cancel()
	require.ErrorIs(t, <-runErrC, context.Canceled)
}

func TestRunnerAbortsOnStoreError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	log := zaptest.NewLogger(t)
	metrics, err := NewProcessorMetrics(metric.Meter{})
	require.NoError(t, err)
	runner := &Runner{
		Processor: &Processor{
			Store:   addFailStore{memkv.New(), boom},
			Exec:    new(recorder),
			Log:     log,
			Keys:    KeysForPrefix("T"),
			Options: DefaultOptions,
			Metrics: metrics,
		},
		Log:         log,
		MinInterval: time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
	}
	require.ErrorIs(t, runner.Run(ctx), boom)
}

// addFailStore fails lock acquisition, as if the store connection dropped.
type addFailStore struct {
	kv.Store
	err error
}

func (a addFailStore) AddIfAbsent(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, a.err
}
