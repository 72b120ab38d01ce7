// cache.go: Time-windowed configuration cache for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Cache holds the last merged configuration tree together with the
// timestamp of its last refresh. Its only decision is ShouldCheckNow:
// whether enough wall-clock time has passed to even bother asking the
// ChangeDetector, which bounds the rate of os.Stat() syscalls under
// high Get() volume.
//
// This window is a performance optimization, never a correctness
// mechanism: in the worst case the configuration served is up to one
// reload interval stale, which is the documented consistency bound.
//
// The tree itself is guarded by the manager's RWLock; Tree and Store
// must only be called with that lock held. ShouldCheckNow is lock-free
// so the hot Get() path can skip the window check without contention.
type Cache struct {
	tree        map[string]interface{} // guarded by the manager's RWLock
	loaded      atomic.Bool
	refreshedAt atomic.Int64 // timecache nanos of last Store
	interval    time.Duration
}

// NewCache creates an empty cache with the given coalescing window.
func NewCache(interval time.Duration) *Cache {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	return &Cache{interval: interval}
}

// ShouldCheckNow reports whether the change detector should be
// consulted: true when nothing is cached yet, or when the time elapsed
// since the last refresh reached the reload interval.
func (c *Cache) ShouldCheckNow() bool {
	if !c.loaded.Load() {
		return true
	}
	elapsed := timecache.CachedTimeNano() - c.refreshedAt.Load()
	return elapsed >= int64(c.interval)
}

// Tree returns the cached configuration tree, or nil if nothing has
// been loaded yet. Caller must hold the read or write lock.
func (c *Cache) Tree() map[string]interface{} {
	return c.tree
}

// Store replaces the cached tree and stamps the refresh time. Caller
// must hold the write lock; the entry is replaced, never mutated in
// place, so readers admitted afterwards observe a complete tree.
func (c *Cache) Store(tree map[string]interface{}) {
	c.tree = tree
	c.refreshedAt.Store(timecache.CachedTimeNano())
	c.loaded.Store(true)
}

// Touch restamps the refresh window without changing the tree. Used
// after a change check that found nothing to do, so the next window
// starts from now instead of re-probing on every read.
func (c *Cache) Touch() {
	c.refreshedAt.Store(timecache.CachedTimeNano())
}

// Clear drops the cached tree and resets the refresh window. Caller
// must hold the write lock.
func (c *Cache) Clear() {
	c.tree = nil
	c.refreshedAt.Store(0)
	c.loaded.Store(false)
}
