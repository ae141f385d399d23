package controller

import "sync/atomic"

// BusyLock is the dashboard-wide single-flight guard. At most one gateway
// sequence may be in flight at a time, across every channel, so the
// operator's view of remote side effects stays serial.
type BusyLock struct {
	held atomic.Bool
}

// NewBusyLock returns a released lock.
func NewBusyLock() *BusyLock {
	return &BusyLock{}
}

// TryAcquire takes the lock without blocking and reports whether it was
// free. Sequences never wait for the lock; a rejected press is simply
// dropped.
func (b *BusyLock) TryAcquire() bool {
	return b.held.CompareAndSwap(false, true)
}

// Release frees the lock.
func (b *BusyLock) Release() {
	b.held.Store(false)
}

// Held reports whether a sequence is in flight.
func (b *BusyLock) Held() bool {
	return b.held.Load()
}
