// rwlock.go: Reader/writer exclusion primitive for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import "sync"

// RWLock grants shared access to any number of concurrent readers or
// exclusive access to a single writer.
//
// The implementation is a counter of active readers protected by one
// mutex and condition variable: AcquireWrite takes the mutex, waits on
// the condition until the reader count drains to zero, and then keeps
// the mutex held for the whole write section. Readers arriving while a
// writer holds the lock block on the same mutex.
//
// The lock is NOT reentrant: a goroutine holding a read lock must
// release it before calling AcquireWrite on the same lock, otherwise it
// deadlocks waiting for its own reader count to drain.
//
// Fairness is not guaranteed. While a writer waits on the condition the
// mutex is released, so a continuous stream of new readers can keep the
// reader count above zero and starve the writer indefinitely. This
// matches the consistency model documented in doc.go; callers needing
// bounded writer latency must throttle readers externally.
type RWLock struct {
	mu      sync.Mutex
	drained *sync.Cond // signaled when the reader count reaches zero
	readers int
}

// NewRWLock creates an unlocked reader/writer lock.
func NewRWLock() *RWLock {
	l := &RWLock{}
	l.drained = sync.NewCond(&l.mu)
	return l
}

// AcquireRead takes a shared read lock. It blocks only while a writer
// holds the lock, never while other readers hold it.
func (l *RWLock) AcquireRead() {
	l.mu.Lock()
	l.readers++
	l.mu.Unlock()
}

// ReleaseRead drops a shared read lock previously taken with AcquireRead.
func (l *RWLock) ReleaseRead() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.drained.Broadcast()
	}
	l.mu.Unlock()
}

// AcquireWrite takes the exclusive write lock, blocking until every
// active reader has released. The underlying mutex stays held until
// ReleaseWrite, so no reader or writer can enter meanwhile.
func (l *RWLock) AcquireWrite() {
	l.mu.Lock()
	for l.readers > 0 {
		l.drained.Wait()
	}
}

// ReleaseWrite drops the exclusive write lock.
func (l *RWLock) ReleaseWrite() {
	l.mu.Unlock()
}
