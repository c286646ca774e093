// Package sync provides the busy-wait locks used to guard state that is shared
// between the main kernel context and trap handlers.
package sync

import "sync/atomic"

const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked after attemptsBeforeYielding failed acquisition
	// attempts. The kernel has no scheduler so it stays nil there; hosted
	// tests replace it with runtime.Gosched.
	yieldFn func()
)

// Spinlock implements a lock where each context trying to acquire it
// busy-waits till the lock becomes available. Trap handlers cannot sleep so
// this is the only lock type available to them.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired. Any attempt to re-acquire a
// lock already held by the current context (e.g. from a trap handler that
// interrupted the holder) will cause a deadlock.
func (l *Spinlock) Acquire() {
	var attempts uint32
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		if attempts++; attempts == attemptsBeforeYielding {
			attempts = 0
			if yieldFn != nil {
				yieldFn()
			}
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other contexts to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
