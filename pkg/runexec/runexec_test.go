package runexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gantryq/gantry/pkg/batchq"
)

func TestCommand(t *testing.T) {
	ctx := context.Background()
	cmd := &Command{
		Log:  zaptest.NewLogger(t),
		Path: "/bin/sh",
		Args: []string{"-c", `test "$(cat)" = "hello" && test -n "$GANTRY_JOB_ID"`},
	}
	job := batchq.NewJob([]byte("hello"), time.Now())
	require.NoError(t, cmd.Execute(ctx, job))
}

func TestCommandFailure(t *testing.T) {
	ctx := context.Background()
	cmd := &Command{
		Log:  zaptest.NewLogger(t),
		Path: "/bin/sh",
		Args: []string{"-c", "echo oops >&2; exit 3"},
	}
	err := cmd.Execute(ctx, batchq.NewJob(nil, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "oops")
}

func TestCommandTimeout(t *testing.T) {
	ctx := context.Background()
	cmd := &Command{
		Log:     zaptest.NewLogger(t),
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	}
	start := time.Now()
	err := cmd.Execute(ctx, batchq.NewJob(nil, time.Now()))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
