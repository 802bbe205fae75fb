// Package runexec executes queue jobs as child processes.
//
// Command starts one process per job. The payload arrives on stdin, the job
// ID and enqueue time are exposed through the environment, and the exit
// status decides between success and failure. This is the executor behind
// the daemon when no custom handler is linked in.
package runexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/batchq"
)

// Command runs one child process per job.
type Command struct {
	// Required components
	Log *zap.Logger
	// Required config
	Path string   // program to run
	Args []string // fixed arguments
	// Timeout is the per-job deadline. Zero means none, a hung handler then
	// blocks the pass past the lock TTL.
	Timeout time.Duration
}

var _ batchq.Executor = (*Command)(nil)

// Execute runs the program once with the job payload on stdin.
func (c *Command) Execute(ctx context.Context, job batchq.Job) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(job.Payload)
	cmd.Env = append(os.Environ(),
		"GANTRY_JOB_ID="+job.ID,
		"GANTRY_ENQUEUED_AT="+job.EnqueuedAt.Format(time.RFC3339Nano))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	c.Log.Debug("Ran job command",
		zap.String("job_id", job.ID),
		zap.Duration("took", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()))
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
