// Package exectest runs helper processes in the background of tests.
package exectest

import (
	"bytes"
	"os/exec"
	"sync"
	"testing"
)

// Background supervises a process for the duration of a test.
type Background struct {
	Cmd *exec.Cmd
	// Forward process output to the test log as it arrives.
	Name      string
	LogStdout bool
	LogStderr bool

	tb        testing.TB
	wg        sync.WaitGroup
	done      chan struct{}
	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// NewBackground wraps a command for running in the background of a test.
func NewBackground(tb testing.TB, cmd *exec.Cmd) *Background {
	return &Background{
		tb:   tb,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
}

// Start launches the process.
// The wrapped exec.Cmd must not be touched again until Close returns.
func (b *Background) Start() {
	prefix := b.Name
	if prefix != "" {
		prefix += ": "
	}
	if b.LogStdout {
		b.Cmd.Stdout = &LogLines{TB: b.tb, Prefix: prefix}
	}
	if b.LogStderr {
		b.Cmd.Stderr = &LogLines{TB: b.tb, Prefix: prefix}
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(b.done)
		err := b.Cmd.Run()
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
	}()
}

// Close kills the process and waits for it to exit.
// Must be called before the test returns. Idempotent.
func (b *Background) Close() {
	b.closeOnce.Do(func() {
		if b.Cmd.Process != nil {
			_ = b.Cmd.Process.Kill()
		}
		b.wg.Wait()
	})
}

// Done returns a channel that closes when the process has exited.
func (b *Background) Done() <-chan struct{} {
	return b.done
}

// Err returns the process exit error, if any.
func (b *Background) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// LogLines forwards writes line by line to a test log.
type LogLines struct {
	TB     testing.TB
	Prefix string
	buf    bytes.Buffer
}

func (l *LogLines) Write(p []byte) (int, error) {
	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(l.buf.Next(i))
		l.buf.Next(1)
		if line != "" {
			l.TB.Log(l.Prefix + line)
		}
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (l *LogLines) Flush() {
	if l.buf.Len() > 0 {
		l.TB.Log(l.Prefix + l.buf.String())
		l.buf.Reset()
	}
}
