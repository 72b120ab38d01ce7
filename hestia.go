// hestia.go: Layered hot-reloadable configuration store
//
// Hestia keeps a merged view of one or more YAML configuration files in
// memory, detects external modifications by polling modification times,
// and writes in-memory changes back to the files that originally owned
// each key.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes returned by Hestia operations. Assert on them through
// the errors.ErrorCoder interface rather than matching messages.
const (
	ErrCodeFileNotFound      = "HESTIA_FILE_NOT_FOUND"
	ErrCodeParseError        = "HESTIA_PARSE_ERROR"
	ErrCodeUnsupportedFormat = "HESTIA_UNSUPPORTED_FORMAT"
	ErrCodeAllSourcesFailed  = "HESTIA_ALL_SOURCES_FAILED"
	ErrCodeWriteError        = "HESTIA_WRITE_ERROR"
	ErrCodeNotLoaded         = "HESTIA_NOT_LOADED"
	ErrCodeInvalidConfig     = "HESTIA_INVALID_CONFIG"
)

// DefaultReloadInterval is the minimum time between filesystem change
// checks when none is configured. Reads within the window serve the
// cached tree without touching the disk.
const DefaultReloadInterval = 5 * time.Second

// ErrorHandler receives errors from background activity: fragments
// skipped during a directory load and reload attempts that failed.
// The handler must not call back into the Manager, it may run while
// internal locks are held.
type ErrorHandler func(err error, path string)

// Options configures a Manager.
type Options struct {
	// ReloadInterval is the coalescing window between change checks.
	// Zero selects DefaultReloadInterval.
	ReloadInterval time.Duration

	// BasePath resolves relative load paths. Empty means paths are
	// taken as given, relative to the working directory.
	BasePath string

	// Defaults is merged underneath every loaded tree: loaded values
	// override defaults, and defaults are never written back.
	Defaults map[string]interface{}

	// ErrorHandler is notified of skipped fragments and failed
	// background reloads. When nil, errors are logged through the
	// standard logger instead.
	ErrorHandler ErrorHandler

	// Sources overrides the default source chain (directory, then
	// single YAML file). Sources are probed in order and the first
	// that supports a path wins.
	Sources []Source

	// Audit configures the audit trail. Disabled by default.
	Audit AuditConfig
}

// WithDefaults returns a copy of the options with zero values replaced
// by production defaults.
func (o Options) WithDefaults() Options {
	if o.ReloadInterval <= 0 {
		o.ReloadInterval = DefaultReloadInterval
	}
	if o.Audit.Enabled {
		if o.Audit.BufferSize <= 0 {
			o.Audit.BufferSize = 1000
		}
		if o.Audit.FlushInterval <= 0 {
			o.Audit.FlushInterval = 5 * time.Second
		}
	}
	return o
}

// Manager is the high-level entry point: it loads configuration trees
// through its sources, serves reads from an in-memory cache, reloads
// when backing files change, and syncs in-memory edits back to disk.
//
// All methods are safe for concurrent use. Reads proceed in parallel,
// mutations are exclusive.
type Manager struct {
	opts     Options
	lock     *RWLock
	cache    *Cache
	detector *ChangeDetector
	sources  []Source
	audit    *AuditLogger
	onError  ErrorHandler

	// Guarded by lock. path is the resolved load target, source is the
	// Source that claimed it, records list each backing file and the
	// key paths it owns.
	path    string
	source  Source
	records []FileRecord
}

// New creates a Manager. Nothing is loaded yet: call Load, or use Open
// to do both in one step.
func New(opts Options) (*Manager, error) {
	opts = opts.WithDefaults()

	m := &Manager{
		opts:     opts,
		lock:     NewRWLock(),
		cache:    NewCache(opts.ReloadInterval),
		detector: NewChangeDetector(),
	}

	if opts.Audit.Enabled {
		logger, err := NewAuditLogger(opts.Audit)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "cannot initialize audit logger")
		}
		m.audit = logger
	}

	m.onError = func(err error, path string) {
		m.audit.Log(AuditWarn, "fragment_skipped", "hestia", path, nil, nil,
			map[string]interface{}{"error": err.Error()})
		if opts.ErrorHandler != nil {
			opts.ErrorHandler(err, path)
			return
		}
		log.Printf("Hestia: error in %s: %v", path, err)
	}

	if len(opts.Sources) > 0 {
		m.sources = opts.Sources
	} else {
		m.sources = []Source{NewDirectorySource(m.onError), NewYAMLSource()}
	}
	return m, nil
}

// Open creates a Manager with the given options and immediately loads
// path.
func Open(path string, opts Options) (*Manager, error) {
	m, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := m.Load(path); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// Load reads the configuration at path and makes it the current tree.
// path may be a YAML file, a directory of YAML fragments, or an
// extensionless name that resolves against the .yaml and .yml
// extensions. Relative paths resolve against Options.BasePath.
//
// On failure the previously loaded state, if any, stays in place.
func (m *Manager) Load(path string) error {
	resolved := m.resolvePath(path)
	source, err := m.selectSource(resolved)
	if err != nil {
		return err
	}

	m.lock.AcquireWrite()
	err = m.reloadLocked(source, resolved, "config_load")
	m.lock.ReleaseWrite()
	return err
}

// Reload re-reads the current load target from disk unconditionally
// and returns a deep copy of the fresh tree. Returns a not-loaded error
// when Load has never succeeded; on read failure the previous tree
// stays in place and the error is returned.
func (m *Manager) Reload() (map[string]interface{}, error) {
	m.lock.AcquireWrite()
	path, source := m.path, m.source
	if path == "" {
		m.lock.ReleaseWrite()
		return nil, errors.New(ErrCodeNotLoaded, "no configuration loaded")
	}
	err := m.reloadLocked(source, path, "config_reload")
	var tree map[string]interface{}
	if err == nil {
		tree = deepCopyTree(m.cache.Tree())
	}
	m.lock.ReleaseWrite()

	if err != nil && m.onError != nil {
		m.onError(err, path)
	}
	return tree, err
}

// reloadLocked reads source into the cache. Caller must hold the write
// lock. On error the cache, baselines, and records are untouched.
func (m *Manager) reloadLocked(source Source, path, event string) error {
	doc, err := source.Read(path)
	if err != nil {
		return err
	}

	tree := doc.Tree
	if len(m.opts.Defaults) > 0 {
		tree = Merge(m.opts.Defaults, tree)
	}

	paths := make([]string, len(doc.Files))
	for i, file := range doc.Files {
		paths[i] = file.Path
	}

	m.cache.Store(tree)
	m.detector.Track(paths)
	m.records = doc.Files
	m.path = path
	m.source = source

	m.audit.Log(AuditInfo, event, "hestia", path, nil, nil,
		map[string]interface{}{"files": len(doc.Files)})
	return nil
}

// Get returns the value at the dot-notation key path, or def when the
// key is absent or nothing is loaded. An empty key path returns the
// whole tree. Composite values come back as deep copies, so callers
// can mutate them freely.
//
// Get transparently reloads when the backing files changed and the
// coalescing window has elapsed. A failed reload is swallowed: the
// previous tree keeps serving and the error goes to the ErrorHandler,
// or to the standard logger when no handler is set.
func (m *Manager) Get(keyPath string, def interface{}) interface{} {
	m.maybeReload()

	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()

	tree := m.cache.Tree()
	if tree == nil {
		return def
	}
	if keyPath == "" {
		return deepCopyTree(tree)
	}
	value, ok := lookupPath(tree, splitKeyPath(keyPath, nil))
	if !ok {
		return def
	}
	return deepCopyValue(value)
}

// Set stores value at the dot-notation key path, creating intermediate
// trees as needed. The change is in-memory only until Sync. Fails when
// nothing is loaded or when an intermediate segment holds a scalar.
func (m *Manager) Set(keyPath string, value interface{}) error {
	m.lock.AcquireWrite()
	defer m.lock.ReleaseWrite()

	tree := m.cache.Tree()
	if tree == nil {
		return errors.New(ErrCodeNotLoaded, "no configuration loaded")
	}

	path := splitKeyPath(keyPath, nil)
	old, _ := lookupPath(tree, path)
	if err := storePath(tree, path, deepCopyValue(value)); err != nil {
		return err
	}
	m.cache.Touch()

	m.audit.Log(AuditCritical, "config_set", "hestia", m.path, old, value,
		map[string]interface{}{"key": keyPath})
	return nil
}

// Delete removes the key path from the in-memory tree, reporting
// whether it was present. Like Set, the change only reaches disk via
// Sync.
func (m *Manager) Delete(keyPath string) (bool, error) {
	m.lock.AcquireWrite()
	defer m.lock.ReleaseWrite()

	tree := m.cache.Tree()
	if tree == nil {
		return false, errors.New(ErrCodeNotLoaded, "no configuration loaded")
	}

	path := splitKeyPath(keyPath, nil)
	old, _ := lookupPath(tree, path)
	removed := deletePath(tree, path)
	if removed {
		m.cache.Touch()
		m.audit.Log(AuditCritical, "config_delete", "hestia", m.path, old, nil,
			map[string]interface{}{"key": keyPath})
	}
	return removed, nil
}

// Sync writes the current tree back to the backing files. Each file
// receives only the key paths it originally defined: keys introduced by
// Defaults or by Set on paths no file owns are never persisted, and
// keys a file owned that were since deleted are dropped from that file.
//
// The write lock is held across both the file writes and the baseline
// commits: a concurrent Get can never observe the new modification
// times before the baselines move, so the sync itself cannot trigger a
// reload.
func (m *Manager) Sync() error {
	m.lock.AcquireWrite()
	defer m.lock.ReleaseWrite()

	tree := m.cache.Tree()
	if tree == nil {
		return errors.New(ErrCodeNotLoaded, "no configuration loaded")
	}

	for _, record := range m.records {
		source, err := m.selectSource(record.Path)
		if err != nil {
			return err
		}

		restricted, kept := restrictTree(tree, record.KeyPaths)
		if err := source.Write(record.Path, restricted, kept); err != nil {
			return err
		}
		if info, statErr := os.Stat(record.Path); statErr == nil {
			m.detector.Commit(record.Path, info.ModTime(), true)
		}
	}

	m.audit.Log(AuditInfo, "config_sync", "hestia", m.path, nil, nil,
		map[string]interface{}{"files": len(m.records)})
	return nil
}

// Snapshot returns a deep copy of the current tree, or nil when
// nothing is loaded. The copy is fully detached from the manager.
func (m *Manager) Snapshot() map[string]interface{} {
	m.maybeReload()

	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()
	return deepCopyTree(m.cache.Tree())
}

// KeyPaths returns every leaf key path of the current tree in sorted
// order. Empty when nothing is loaded.
func (m *Manager) KeyPaths() []string {
	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()

	tree := m.cache.Tree()
	if tree == nil {
		return nil
	}
	return LeafKeyPaths(tree)
}

// Loaded reports whether a configuration tree is currently available.
func (m *Manager) Loaded() bool {
	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()
	return m.cache.Tree() != nil
}

// Path returns the resolved load target, empty before the first
// successful Load.
func (m *Manager) Path() string {
	m.lock.AcquireRead()
	defer m.lock.ReleaseRead()
	return m.path
}

// AuditStats returns statistics from the audit backend, nil when
// auditing is disabled.
func (m *Manager) AuditStats() (*AuditStats, error) {
	return m.audit.Stats()
}

// Close flushes and shuts down the audit trail. The manager itself
// holds no other resources, so Close is only required when auditing is
// enabled.
func (m *Manager) Close() error {
	if m.audit != nil {
		return m.audit.Close()
	}
	return nil
}

// maybeReload runs the cheap hot-path check behind Get: outside the
// coalescing window it consults the detector under the read lock, then
// releases it before reloading because the lock is not reentrant and
// Reload needs the write side.
func (m *Manager) maybeReload() {
	if !m.cache.ShouldCheckNow() {
		return
	}

	m.lock.AcquireRead()
	loaded := m.path != ""
	changed := loaded && m.detector.HasChanged()
	m.lock.ReleaseRead()

	if !loaded {
		return
	}
	if !changed {
		m.cache.Touch()
		return
	}
	if _, err := m.Reload(); err != nil {
		// Stale data keeps serving; rate-limit retries to the window.
		m.cache.Touch()
	}
}

// resolvePath applies BasePath to relative paths and the extension
// fallback to extensionless ones: an existing directory passes through,
// otherwise name.yaml then name.yml are probed, defaulting to .yaml.
func (m *Manager) resolvePath(path string) string {
	if !filepath.IsAbs(path) && m.opts.BasePath != "" {
		path = filepath.Join(m.opts.BasePath, path)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	if filepath.Ext(path) != "" {
		return path
	}
	for _, ext := range yamlExtensions {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext
		}
	}
	return path + yamlExtensions[0]
}

// selectSource returns the first registered source that supports path.
func (m *Manager) selectSource(path string) (Source, error) {
	for _, source := range m.sources {
		if source.Supports(path) {
			return source, nil
		}
	}
	return nil, errors.New(ErrCodeUnsupportedFormat, "no source supports this path").
		WithContext("path", path).
		WithContext("extension", filepath.Ext(path))
}
