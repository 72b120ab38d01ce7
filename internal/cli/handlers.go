// Command handlers for the Hestia CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/hestia"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// handleConfigGet retrieves a configuration value using dot notation.
func (m *Manager) handleConfigGet(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	key := ctx.GetArg(1)

	doc, err := m.loadDocument(path)
	if err != nil {
		return err
	}

	value, ok := hestia.Lookup(doc.Tree, key)
	if !ok {
		return errors.New(hestia.ErrCodeInvalidConfig, fmt.Sprintf("key '%s' not found", key))
	}

	fmt.Printf("%v\n", value)
	return nil
}

// handleConfigSet sets a configuration value and writes the file back
// atomically. A missing file is created.
func (m *Manager) handleConfigSet(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	key := ctx.GetArg(1)
	value := ctx.GetArg(2)

	m.auditLogger.Log(hestia.AuditInfo, "cli_config_set", "hestia-cli", path, nil, nil,
		map[string]interface{}{"key": key})

	source := m.sourceFor(path)
	doc, err := source.Read(path)
	if err != nil {
		// A missing file starts from an empty tree; anything else is
		// a real failure the user should see.
		if coder, ok := err.(errors.ErrorCoder); !ok || string(coder.ErrorCode()) != hestia.ErrCodeFileNotFound {
			return err
		}
		doc = &hestia.Document{
			Tree:  make(map[string]interface{}),
			Files: []hestia.FileRecord{{Path: path}},
		}
	}

	parsedValue := parseValue(value)
	if err := hestia.Store(doc.Tree, key, parsedValue); err != nil {
		return errors.Wrap(err, hestia.ErrCodeInvalidConfig, "failed to set value")
	}

	if err := m.writeDocument(doc, key); err != nil {
		return err
	}

	fmt.Printf("Set %s = %v in %s\n", key, parsedValue, path)
	return nil
}

// handleConfigDelete removes a configuration key and writes the file
// back atomically.
func (m *Manager) handleConfigDelete(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	key := ctx.GetArg(1)

	m.auditLogger.Log(hestia.AuditInfo, "cli_config_delete", "hestia-cli", path, nil, nil,
		map[string]interface{}{"key": key})

	source := m.sourceFor(path)
	doc, err := source.Read(path)
	if err != nil {
		return err
	}

	if !hestia.Remove(doc.Tree, key) {
		return errors.New(hestia.ErrCodeInvalidConfig, fmt.Sprintf("key '%s' not found", key))
	}

	if err := m.writeDocument(doc, key); err != nil {
		return err
	}

	fmt.Printf("Deleted %s from %s\n", key, path)
	return nil
}

// writeDocument persists a document after an edit to editedKey. For
// directory documents the write targets the last fragment that defined
// the key, falling back to the last fragment for brand-new keys;
// single files write directly. A key no file recorded yet is appended
// to the write so it persists.
func (m *Manager) writeDocument(doc *hestia.Document, editedKey string) error {
	target := doc.Files[len(doc.Files)-1]
	if len(doc.Files) > 1 && editedKey != "" {
		for _, file := range doc.Files {
			for _, kp := range file.KeyPaths {
				if kp == editedKey || strings.HasPrefix(kp, editedKey+".") {
					target = file
				}
			}
		}
	}

	keyPaths := target.KeyPaths
	if editedKey != "" && !containsKey(keyPaths, editedKey) {
		if _, stillPresent := hestia.Lookup(doc.Tree, editedKey); stillPresent {
			keyPaths = append(append([]string{}, keyPaths...), editedKey)
		}
	}

	writer := hestia.NewYAMLSource()
	if len(doc.Files) == 1 {
		return writer.Write(target.Path, doc.Tree, keyPaths)
	}

	// Directory case: rebuild just this fragment's view of the tree.
	fragment := make(map[string]interface{})
	for _, kp := range keyPaths {
		if value, ok := hestia.Lookup(doc.Tree, kp); ok {
			if err := hestia.Store(fragment, kp, value); err != nil {
				return errors.Wrap(err, hestia.ErrCodeWriteError, "failed to rebuild fragment")
			}
		}
	}
	return writer.Write(target.Path, fragment, keyPaths)
}

func containsKey(keyPaths []string, key string) bool {
	for _, kp := range keyPaths {
		if kp == key {
			return true
		}
	}
	return false
}

// handleConfigList lists configuration keys with optional prefix
// filtering.
func (m *Manager) handleConfigList(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	prefix := ctx.GetFlagString("prefix")

	doc, err := m.loadDocument(path)
	if err != nil {
		return err
	}

	var keys []string
	for _, key := range hestia.LeafKeyPaths(doc.Tree) {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		if prefix != "" {
			fmt.Printf("No keys found with prefix '%s'\n", prefix)
		} else {
			fmt.Println("No configuration keys found")
		}
		return nil
	}

	fmt.Printf("Configuration keys in %s:\n", path)
	for _, key := range keys {
		value, _ := hestia.Lookup(doc.Tree, key)
		fmt.Printf("  %s = %v\n", key, value)
	}
	return nil
}

// handleConfigValidate parses the configuration and reports the
// outcome.
func (m *Manager) handleConfigValidate(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)

	doc, err := m.loadDocument(path)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return err
	}

	fmt.Printf("Valid configuration: %s (%d files, %d keys)\n",
		path, len(doc.Files), len(hestia.LeafKeyPaths(doc.Tree)))
	return nil
}

// handleConfigInit creates a new configuration file from a template.
func (m *Manager) handleConfigInit(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	template := ctx.GetFlagString("template")
	if template == "" {
		template = "default"
	}

	if _, err := os.Stat(path); err == nil {
		return errors.New(hestia.ErrCodeWriteError, fmt.Sprintf("file already exists: %s", path))
	}

	tree := generateTemplate(template)
	if err := hestia.NewYAMLSource().Write(path, tree, hestia.LeafKeyPaths(tree)); err != nil {
		return err
	}

	fmt.Printf("Created configuration: %s\n", path)
	fmt.Printf("Template: %s\n", template)
	return nil
}

// handleWatch monitors a configuration for changes through a manager,
// exercising the same reload path applications use.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	intervalStr := ctx.GetFlagString("interval")
	verbose := ctx.GetFlagBool("verbose")

	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return errors.New(hestia.ErrCodeInvalidConfig, fmt.Sprintf("invalid interval: %v", err))
	}

	manager, err := hestia.Open(path, hestia.Options{
		ReloadInterval: interval,
		ErrorHandler: func(err error, p string) {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", p, err)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	fmt.Printf("Watching %s (interval: %v)\n", path, interval)
	fmt.Println("Press Ctrl+C to stop...")

	last := manager.Snapshot()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		current := manager.Snapshot()
		if reflect.DeepEqual(current, last) {
			continue
		}
		last = current

		fmt.Printf("Configuration changed: %s\n", path)
		m.auditLogger.Log(hestia.AuditInfo, "cli_watch_change", "hestia-cli", path, nil, nil, nil)

		if verbose {
			for _, key := range hestia.LeafKeyPaths(current) {
				value, _ := hestia.Lookup(current, key)
				fmt.Printf("  %s = %v\n", key, value)
			}
		}
	}
	return nil
}

// handleAuditStats prints statistics from the audit store.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	config := hestia.DefaultAuditConfig()
	config.FlushInterval = 0
	if output := ctx.GetFlagString("output"); output != "" {
		config.OutputFile = output
	}

	logger, err := hestia.NewAuditLogger(config)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	stats, err := logger.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Audit trail statistics:\n")
	fmt.Printf("  Total events: %d\n", stats.TotalEvents)
	fmt.Printf("  Storage size: %d bytes\n", stats.StorageSize)
	if stats.OldestEvent != nil {
		fmt.Printf("  Oldest event: %s\n", stats.OldestEvent.Format(time.RFC3339))
	}
	if stats.NewestEvent != nil {
		fmt.Printf("  Newest event: %s\n", stats.NewestEvent.Format(time.RFC3339))
	}
	for level, count := range stats.EventsByLevel {
		fmt.Printf("  %s: %d\n", level, count)
	}
	return nil
}

// handleInfo displays system information.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	fmt.Printf("Hestia Configuration Management\n")
	fmt.Printf("Version: 1.0.0\n")

	if verbose {
		fmt.Printf("\nDetails:\n")
		fmt.Printf("Supported formats: YAML (.yaml, .yml), fragment directories\n")
		fmt.Printf("Default reload interval: %v\n", hestia.DefaultReloadInterval)
		fmt.Printf("Audit logging: %v\n", m.auditLogger != nil)
	}
	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)

	switch shell {
	case "bash":
		fmt.Printf("# Bash completion for hestia\n")
		fmt.Printf("# Add to ~/.bashrc: source <(hestia completion bash)\n")
		fmt.Printf("_hestia_completion() {\n")
		fmt.Printf("  COMPREPLY=($(compgen -W 'config watch audit info completion' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n")
		fmt.Printf("}\n")
		fmt.Printf("complete -F _hestia_completion hestia\n")
	case "zsh":
		fmt.Printf("# Zsh completion for hestia\n")
		fmt.Printf("# Add to ~/.zshrc: source <(hestia completion zsh)\n")
		fmt.Printf("#compdef hestia\n")
		fmt.Printf("_hestia() {\n")
		fmt.Printf("  _arguments '1: :(config watch audit info completion)'\n")
		fmt.Printf("}\n")
	case "fish":
		fmt.Printf("# Fish completion for hestia\n")
		fmt.Printf("complete -c hestia -f -a 'config watch audit info completion'\n")
	default:
		return errors.New(hestia.ErrCodeInvalidConfig, fmt.Sprintf("unsupported shell: %s", shell))
	}
	return nil
}
