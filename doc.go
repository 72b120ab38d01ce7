// Package hestia provides a layered, hot-reloadable configuration store
// for Go applications: YAML files and fragment directories merged into
// one in-memory tree, change detection by modification-time polling,
// and selective write-back that returns each key to the file that
// originally defined it.
//
// # Architecture Overview
//
// Hestia is built from small cooperating pieces:
//  1. Sources read and write configuration: a single-file YAML source
//     and a directory source that aggregates fragments in priority
//     order.
//  2. The Merger folds trees deterministically: nested trees merge
//     recursively, scalars and lists replace, later sources win.
//  3. The ChangeDetector keeps per-file modification-time baselines and
//     answers whether any backing file changed since the last load.
//  4. The Cache serves reads within a coalescing window so high Get
//     volume never turns into an os.Stat() storm.
//  5. The Manager ties it together behind a thread-safe API guarded by
//     a reader/writer lock: parallel reads, exclusive mutations.
//
// # Quick Start
//
// Load a configuration and read values with dot notation:
//
//	manager, err := hestia.Open("config.yaml", hestia.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer manager.Close()
//
//	host := manager.GetString("server.host", "localhost")
//	port := manager.GetInt("server.port", 8080)
//
// Reads transparently pick up external file edits: when a backing file
// changes and the reload window has elapsed, the next Get serves the
// new tree. A reload that fails keeps serving the previous tree and
// reports the error through the configured ErrorHandler.
//
// # Fragment Directories
//
// A directory of YAML fragments loads as one merged document. Fragments
// apply in filename order, or by their numeric top-level "priority" key
// when any fragment declares one (lower first, later overrides). A
// fragment that fails to parse is skipped with a notification; the rest
// of the directory still loads.
//
//	manager, err := hestia.Open("/etc/myapp/conf.d", hestia.Options{
//		ErrorHandler: func(err error, path string) {
//			log.Printf("config: %s: %v", path, err)
//		},
//	})
//
// # Editing and Write-Back
//
// Set and Delete mutate the in-memory tree; Sync persists it. Each file
// receives exactly the keys it originally defined, so defaults and keys
// no file owns never leak to disk, and files keep their key order:
//
//	if err := manager.Set("server.port", 9090); err != nil {
//		log.Fatal(err)
//	}
//	if err := manager.Sync(); err != nil {
//		log.Fatal(err)
//	}
//
// # Typed Binding
//
// The fluent binder applies configuration values to typed variables:
//
//	var dbHost string
//	var dbPort int
//	var timeout time.Duration
//
//	err := hestia.Bind(manager.Snapshot()).
//		BindString(&dbHost, "database.host", "localhost").
//		BindInt(&dbPort, "database.port", 5432).
//		BindDuration(&timeout, "database.timeout", 30*time.Second).
//		Apply()
//
// # Application Configuration Layering
//
// AppConfig combines command-line flags, environment variables, the
// configuration file, and flag defaults into one precedence chain,
// with FlashFlags doing the parsing:
//
//	manager, _ := hestia.Open("app.yaml", hestia.Options{})
//	config := hestia.NewAppConfig("myapp").
//		StringFlag("server-host", "localhost", "Server host").
//		IntFlag("server-port", 8080, "Server port").
//		WithManager(manager)
//	config.ParseArgsOrExit()
//
//	port := config.GetInt("server-port") // flag, MYAPP_SERVER_PORT, file, default
//
// # Audit Trail
//
// An optional audit trail records loads, reloads, edits, and syncs with
// tamper-detection checksums, stored in SQLite (WAL mode) with a JSONL
// fallback:
//
//	manager, err := hestia.Open("config.yaml", hestia.Options{
//		Audit: hestia.DefaultAuditConfig(),
//	})
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. Reads run in
// parallel under a shared lock; Load, Reload, Set, Delete, and the
// commit phase of Sync are exclusive. Composite values returned by Get
// and Snapshot are deep copies, detached from the shared tree.
//
// Repository: https://github.com/agilira/hestia
package hestia
