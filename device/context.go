// Package device models the accelerator a scan runs on: an in-order work
// queue, a memory pool with allocation accounting, and typed arrays whose
// contents cross the host/device boundary only through explicit transfers.
// Execution is backed by host CPUs, but the contract — asynchronous issue,
// a single synchronization barrier, pinned memory for device→host scalars —
// mirrors a real device runtime, so code written against it carries over.
package device

import (
	"runtime"
	"sync"
)

// Context bundles the queue and pool for one logical device, plus the worker
// fan-out used by parallel kernels.
type Context struct {
	Queue   *Queue
	Pool    *Pool
	Workers int
}

var (
	defaultCtx  *Context
	defaultOnce sync.Once
)

// NewContext creates an isolated context with its own queue and pool. Tests
// use this to get clean allocation counters.
func NewContext() *Context {
	return &Context{
		Queue:   NewQueue(),
		Pool:    NewPool(),
		Workers: runtime.NumCPU(),
	}
}

// Default returns the shared process-wide context, creating it on first use.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext()
	})
	return defaultCtx
}

// Close stops the queue worker. Outstanding work is drained first.
func (c *Context) Close() {
	c.Queue.Close()
}
