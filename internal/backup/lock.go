package backup

import "sync/atomic"

// writeLock provides non-blocking lock semantics using atomic operations.
type writeLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *writeLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *writeLock) Release() {
	l.state.Store(0)
}
