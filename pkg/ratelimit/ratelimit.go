// Package ratelimit paces bulk operations with a sliding-window estimate.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"
)

// Limiter is a best-effort, lock-free sliding-window rate limiter.
//
// The usage estimate weighs the previous window against the elapsed part of
// the current one.
// Algorithm: https://blog.cloudflare.com/counting-things-a-lot-of-different-things/
type Limiter struct {
	Target float32 // allowed events per second
	Window uint    // window size in seconds
	epoch  int64   // window offset
	w0, w1 int64   // previous and current window counts
}

// NewLimiter creates a limiter allowing target events per second,
// estimated over a window of the given size in seconds.
func NewLimiter(target float32, window uint) *Limiter {
	return &Limiter{
		Target: target,
		Window: window,
	}
}

// Count registers n events at the given Unix time and returns how long the
// caller should pause to fall back to the target rate.
// Safe to call from multiple goroutines at the same time.
func (l *Limiter) Count(unix int64, n int64) time.Duration {
	// Fetch and update the rate limiting windows.
	epoch := unix / int64(l.Window)
	fastPath := true
	var w0, w1 int64
	for {
		// Shift the windows forward.
		savedEpoch := atomic.LoadInt64(&l.epoch)
		if savedEpoch >= epoch {
			break // fast path
		}
		fastPath = false
		if !atomic.CompareAndSwapInt64(&l.epoch, savedEpoch, epoch) {
			continue
		}
		if savedEpoch+1 == epoch {
			w1 = n
			w0 = atomic.SwapInt64(&l.w1, w1)
			atomic.StoreInt64(&l.w0, w0)
		} else {
			atomic.StoreInt64(&l.w0, 0)
			atomic.StoreInt64(&l.w1, 0)
		}
	}
	if fastPath {
		w1 = atomic.AddInt64(&l.w1, n)
		w0 = atomic.LoadInt64(&l.w0)
	}
	// Estimate the current usage.
	offset := 1.0 - float32(unix%int64(l.Window))/float32(l.Window)
	usage := offset*float32(w0) + float32(w1)
	rate := usage / float32(l.Window)
	if rate <= l.Target {
		return 0
	}
	pause := float32(l.Window) * (rate - l.Target)
	return time.Duration(pause * float32(time.Second))
}

// Take registers n events and sleeps out the resulting pause.
func (l *Limiter) Take(ctx context.Context, n int64) error {
	pause := l.Count(time.Now().Unix(), n)
	if pause <= 0 {
		return nil
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
