// Utility functions for the Hestia CLI
//
// This file provides helpers for loading documents and parsing values
// from the command line. Nested key manipulation goes through the tree
// helpers exported by the hestia package.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/agilira/hestia"
)

// sourceFor returns the source appropriate for path: the directory
// source for directories, the YAML file source otherwise. Fragment
// parse failures during directory loads are reported to stderr and
// skipped.
func (m *Manager) sourceFor(path string) hestia.Source {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return hestia.NewDirectorySource(func(err error, fragment string) {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", fragment, err)
		})
	}
	return hestia.NewYAMLSource()
}

// loadDocument reads the configuration at path through the matching
// source.
func (m *Manager) loadDocument(path string) (*hestia.Document, error) {
	return m.sourceFor(path).Read(path)
}

// parseValue interprets a command-line value string as the scalar it
// spells: bool, int, float, null, otherwise the string itself.
func parseValue(value string) interface{} {
	switch value {
	case "true":
		return true
	case "false":
		return false
	case "null", "~":
		return nil
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// generateTemplate returns starter content for config init.
func generateTemplate(templateType string) map[string]interface{} {
	switch templateType {
	case "server":
		return map[string]interface{}{
			"server": map[string]interface{}{
				"host": "localhost",
				"port": 8080,
				"timeouts": map[string]interface{}{
					"read":  "30s",
					"write": "30s",
				},
			},
			"logging": map[string]interface{}{
				"level":  "info",
				"format": "json",
			},
		}
	case "minimal":
		return map[string]interface{}{
			"name": "myapp",
		}
	default:
		return map[string]interface{}{
			"name":    "myapp",
			"version": "1.0.0",
			"debug":   false,
			"logging": map[string]interface{}{
				"level": "info",
			},
		}
	}
}
