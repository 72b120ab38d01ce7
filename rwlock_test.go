// rwlock_test.go - Tests for the reader/writer lock
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRWLockParallelReaders(t *testing.T) {
	lock := NewRWLock()

	var active atomic.Int32
	var peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock.AcquireRead()
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			lock.ReleaseRead()
		}()
	}
	wg.Wait()

	if peak.Load() < 2 {
		t.Errorf("expected parallel readers, peak was %d", peak.Load())
	}
}

func TestRWLockWriterExcludesReaders(t *testing.T) {
	lock := NewRWLock()

	counter := 0
	var wg sync.WaitGroup

	// Writers increment a plain int; any overlap with readers or other
	// writers shows up under the race detector and as lost updates.
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lock.AcquireWrite()
				counter++
				lock.ReleaseWrite()
			}
		}()
	}

	var reads atomic.Int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				lock.AcquireRead()
				_ = counter
				reads.Add(1)
				lock.ReleaseRead()
			}
		}()
	}
	wg.Wait()

	if counter != 500 {
		t.Errorf("expected 500 increments, got %d", counter)
	}
	if reads.Load() != 1000 {
		t.Errorf("expected 1000 reads, got %d", reads.Load())
	}
}

func TestRWLockWriterWaitsForReaders(t *testing.T) {
	lock := NewRWLock()

	lock.AcquireRead()

	writerDone := make(chan struct{})
	go func() {
		lock.AcquireWrite()
		lock.ReleaseWrite()
		close(writerDone)
	}()

	select {
	case <-writerDone:
		t.Fatal("writer acquired while a reader was active")
	case <-time.After(50 * time.Millisecond):
	}

	lock.ReleaseRead()

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after reader release")
	}
}
