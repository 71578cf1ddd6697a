// Package backend gates the process-wide init/free pair the native
// inference library requires. The native library is not thread-safe across
// its own init/free calls, so a single lock-guarded refcount serializes
// them while letting multiple engines load and unload independently.
//
// Adapted from the teacher's internal/agent/tool_registry.go sessionLock
// pattern (a lock-guarded refs counter, deleted/reset at zero), generalized
// from one counter per session id to a single counter for the whole
// process.
package backend

import (
	"log/slog"
	"sync"
)

// InitFunc and FreeFunc are the native library's process-wide lifecycle
// hooks, injected so tests can substitute fakes.
type InitFunc func() error
type FreeFunc func()

// Refcount gates a single init/free pair behind an atomic-by-lock counter.
// The zero value is not usable; construct with NewRefcount.
type Refcount struct {
	mu     sync.Mutex
	count  int
	init   InitFunc
	free   FreeFunc
	logger *slog.Logger
}

// NewRefcount builds a Refcount around the given native init/free hooks.
// logger defaults to slog.Default() if nil, matching engine.New and
// agent.NewCoordinator.
func NewRefcount(init InitFunc, free FreeFunc, logger *slog.Logger) *Refcount {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refcount{init: init, free: free, logger: logger}
}

// Acquire increments the refcount, calling init on the 0→1 transition. If
// init fails the count is not incremented and the error is returned.
func (r *Refcount) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		if err := r.init(); err != nil {
			r.logger.Warn("native backend init failed", "error", err)
			return err
		}
	}
	r.count++
	return nil
}

// Release decrements the refcount, calling free on the 1→0 transition.
// Releasing a zero count is a no-op.
func (r *Refcount) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return
	}
	r.count--
	if r.count == 0 {
		r.free()
	}
}

// Count returns the current refcount, for tests and diagnostics.
func (r *Refcount) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
