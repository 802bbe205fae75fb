package batchq

import "context"

// Executor runs a single job. Implementations live outside this package,
// the queue only hands over the job and records success or failure.
//
// Execute is called synchronously, once per job per pass, in enqueue order.
// Returning an error marks the job failed but neither aborts the pass nor
// puts the job back in the queue.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job Job) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job Job) error {
	return f(ctx, job)
}
