// Package appctx ties the process lifetime to shutdown signals.
package appctx

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	setup sync.Once
	root  context.Context
)

// Context returns the root context of the process, shared by all callers.
// It is canceled on the first SIGINT or SIGTERM. A second signal kills the
// process right away, for when a graceful shutdown hangs.
func Context() context.Context {
	setup.Do(func() {
		var cancel context.CancelFunc
		root, cancel = context.WithCancel(context.Background())
		signals := make(chan os.Signal, 2)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signals
			cancel()
			<-signals
			os.Exit(1)
		}()
	})
	return root
}
