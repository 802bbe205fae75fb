package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"

	"github.com/gantryq/gantry/cmd/providers/providerstest"
	"github.com/gantryq/gantry/pkg/batchq"
)

func TestApp(t *testing.T) {
	providerstest.Validate(t,
		fx.Provide(newFlags),
		fx.Invoke(invoke(new(int))))
}

func TestExitFor(t *testing.T) {
	assert.Equal(t, 0, exitFor(&batchq.Report{Outcome: batchq.Processed}))
	assert.Equal(t, 0, exitFor(&batchq.Report{Outcome: batchq.NoJobsPending}))
	assert.Equal(t, 2, exitFor(&batchq.Report{Outcome: batchq.NoLockAvailable}))
	assert.Equal(t, 3, exitFor(&batchq.Report{Outcome: batchq.PartialFailure}))
	failed := &batchq.Report{
		Outcome: batchq.Processed,
		Results: []batchq.JobResult{{Err: assert.AnError}},
	}
	assert.Equal(t, 4, exitFor(failed))

	// The most severe code of a multi-queue pass wins.
	assert.Equal(t, 3, worseExit(3, 4))
	assert.Equal(t, 3, worseExit(4, 3))
	assert.Equal(t, 4, worseExit(0, 4))
	assert.Equal(t, 2, worseExit(2, 0))
}
