// detector.go: Modification-time change detection for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"os"
	"sync/atomic"
	"time"
)

// fileBaseline records the last observed modification metadata of one
// backing file. A missing file is tracked explicitly so both deletion
// and creation are detectable.
type fileBaseline struct {
	modTime time.Time
	exists  bool
}

// ChangeDetector answers "has any backing file changed since the last
// committed load". It keeps one baseline per tracked path.
//
// HasChanged never updates the baselines itself: only Track (after a
// successful load) or Commit (after a successful write-back) move them.
// This prevents the lost-update race where a change is detected but the
// corresponding data was never actually loaded.
//
// The baseline map is guarded by the manager's RWLock: Track and Commit
// run under the write lock, HasChanged under at least the read lock.
// The check counter is atomic so tests and monitors can read it freely.
type ChangeDetector struct {
	baselines map[string]fileBaseline
	checks    atomic.Uint64 // number of stat probes performed
}

// NewChangeDetector creates a detector with no tracked paths.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Track replaces the tracked path set, recording the current mtime for
// each existing path and an explicit absent marker for missing ones.
// Caller must hold the write lock and must call this strictly after the
// corresponding successful read, so an external write landing between
// stat and read cannot be mistaken for already observed.
func (d *ChangeDetector) Track(paths []string) {
	baselines := make(map[string]fileBaseline, len(paths))
	for _, path := range paths {
		baselines[path] = statBaseline(path)
	}
	d.baselines = baselines
}

// Commit refreshes the baseline of a single tracked path, typically to
// the mtime just produced by a write-back so the write itself does not
// trigger a spurious reload. Paths not currently tracked are ignored.
// Caller must hold the write lock.
func (d *ChangeDetector) Commit(path string, modTime time.Time, exists bool) {
	if _, tracked := d.baselines[path]; !tracked {
		return
	}
	d.baselines[path] = fileBaseline{modTime: modTime, exists: exists}
}

// HasChanged reports whether any tracked file differs from its
// baseline: true when no baseline exists yet, when a tracked file
// disappeared or appeared, or when any mtime moved. The baselines are
// left untouched. Caller must hold at least the read lock.
func (d *ChangeDetector) HasChanged() bool {
	if d.baselines == nil {
		return true
	}

	for path, base := range d.baselines {
		current := d.probe(path)
		if current.exists != base.exists {
			return true
		}
		if current.exists && !current.modTime.Equal(base.modTime) {
			return true
		}
	}
	return false
}

// CheckCount returns the number of stat probes performed so far. It
// exists so callers can verify that the cache window actually bounds
// filesystem traffic.
func (d *ChangeDetector) CheckCount() uint64 {
	return d.checks.Load()
}

// probe stats one path and bumps the observable check counter.
func (d *ChangeDetector) probe(path string) fileBaseline {
	d.checks.Add(1)
	return statBaseline(path)
}

func statBaseline(path string) fileBaseline {
	info, err := os.Stat(path)
	if err != nil {
		return fileBaseline{exists: false}
	}
	return fileBaseline{modTime: info.ModTime(), exists: true}
}
