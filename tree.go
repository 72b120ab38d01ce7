// tree.go: Nested configuration tree helpers for Hestia
//
// A configuration tree is a plain map[string]interface{} whose values are
// scalars, []interface{} lists, or nested map[string]interface{} trees.
// Locations inside a tree are addressed by dot-notation key paths
// ("database.host"). All traversal here is explicit recursive descent
// over those three shapes; no reflection.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
)

// splitKeyPath splits a dot-notation key into segments, reusing the
// provided buffer to avoid allocations on hot lookup paths.
func splitKeyPath(key string, buffer []string) []string {
	if !strings.Contains(key, ".") {
		return append(buffer, key)
	}

	for _, part := range strings.Split(key, ".") {
		part = strings.TrimSpace(part)
		if part != "" {
			buffer = append(buffer, part)
		}
	}
	return buffer
}

// lookupPath resolves a key path inside a tree. The boolean reports
// whether every segment was present; a stored nil value is therefore
// distinguishable from an absent key.
func lookupPath(tree map[string]interface{}, path []string) (interface{}, bool) {
	current := tree
	for i, key := range path {
		value, exists := current[key]
		if !exists {
			return nil, false
		}
		if i == len(path)-1 {
			return value, true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// storePath sets a value at a key path, creating intermediate trees as
// needed. Fails if an intermediate segment resolves to a non-tree value.
func storePath(tree map[string]interface{}, path []string, value interface{}) error {
	if len(path) == 0 {
		return errors.New(ErrCodeInvalidConfig, "empty key path")
	}

	current := tree
	for i := 0; i < len(path)-1; i++ {
		key := path[i]
		next, exists := current[key]
		if !exists {
			child := make(map[string]interface{})
			current[key] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return errors.New(ErrCodeInvalidConfig,
				fmt.Sprintf("key %q holds a scalar, cannot descend into it", key))
		}
		current = child
	}

	current[path[len(path)-1]] = value
	return nil
}

// deletePath removes the value at a key path, reporting whether it was
// present. Empty intermediate trees left behind by the deletion are
// kept, matching the behavior of setting and then clearing a key.
func deletePath(tree map[string]interface{}, path []string) bool {
	if len(path) == 0 {
		return false
	}

	current := tree
	for i := 0; i < len(path)-1; i++ {
		next, ok := current[path[i]].(map[string]interface{})
		if !ok {
			return false
		}
		current = next
	}

	last := path[len(path)-1]
	if _, exists := current[last]; !exists {
		return false
	}
	delete(current, last)
	return true
}

// Lookup resolves a dot-notation key path in tree. The boolean reports
// whether every segment was present, so a stored nil value is
// distinguishable from an absent key.
func Lookup(tree map[string]interface{}, keyPath string) (interface{}, bool) {
	return lookupPath(tree, splitKeyPath(keyPath, nil))
}

// Store sets a value at a dot-notation key path in tree, creating
// intermediate trees as needed. Fails when an intermediate segment
// holds a scalar.
func Store(tree map[string]interface{}, keyPath string, value interface{}) error {
	return storePath(tree, splitKeyPath(keyPath, nil), value)
}

// Remove deletes a dot-notation key path from tree, reporting whether
// it was present.
func Remove(tree map[string]interface{}, keyPath string) bool {
	return deletePath(tree, splitKeyPath(keyPath, nil))
}

// deepCopyTree clones a tree including nested trees and lists. Scalars
// are shared, which is safe because scalars are immutable.
func deepCopyTree(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyList(src []interface{}) []interface{} {
	if src == nil {
		return nil
	}
	dst := make([]interface{}, len(src))
	for i, v := range src {
		dst[i] = deepCopyValue(v)
	}
	return dst
}

// deepCopyValue clones composite values and passes scalars through.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyTree(val)
	case []interface{}:
		return deepCopyList(val)
	default:
		return v
	}
}

// restrictTree rebuilds a tree containing exactly the given key paths,
// pulled from the current state of src. Paths no longer present in src
// are skipped. The returned path list preserves the input order minus
// the skipped entries, so write-back stays deterministic.
func restrictTree(src map[string]interface{}, keyPaths []string) (map[string]interface{}, []string) {
	restricted := make(map[string]interface{})
	kept := make([]string, 0, len(keyPaths))

	var buf []string
	for _, keyPath := range keyPaths {
		buf = splitKeyPath(keyPath, buf[:0])
		value, ok := lookupPath(src, buf)
		if !ok {
			continue
		}
		if err := storePath(restricted, buf, deepCopyValue(value)); err != nil {
			continue
		}
		kept = append(kept, keyPath)
	}
	return restricted, kept
}

// LeafKeyPaths collects every leaf key path of a tree in dot notation,
// sorted for determinism. Nested trees recurse; empty trees, lists and
// scalars are leaves.
func LeafKeyPaths(tree map[string]interface{}) []string {
	var paths []string
	collectKeyPaths(tree, "", &paths)
	sort.Strings(paths)
	return paths
}

func collectKeyPaths(tree map[string]interface{}, prefix string, paths *[]string) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if child, ok := value.(map[string]interface{}); ok && len(child) > 0 {
			collectKeyPaths(child, full, paths)
			continue
		}
		*paths = append(*paths, full)
	}
}

// keyOrderIndex maps a tree level (identified by its dot-notation
// prefix, "" for the root) to the ordered child keys observed at that
// level. It is derived from a flat key-path list and drives
// insertion-ordered serialization during write-back.
type keyOrderIndex map[string][]string

// buildKeyOrder derives the per-level key order from flat key paths,
// keeping the first occurrence of every key at every level.
func buildKeyOrder(keyPaths []string) keyOrderIndex {
	index := make(keyOrderIndex)
	seen := make(map[string]bool)

	var buf []string
	for _, keyPath := range keyPaths {
		buf = splitKeyPath(keyPath, buf[:0])
		prefix := ""
		for _, seg := range buf {
			marker := prefix + "\x00" + seg
			if !seen[marker] {
				seen[marker] = true
				index[prefix] = append(index[prefix], seg)
			}
			if prefix == "" {
				prefix = seg
			} else {
				prefix = prefix + "." + seg
			}
		}
	}
	return index
}

// orderedKeys returns the keys of one tree level in recorded order,
// appending keys unknown to the index in sorted order so serialization
// stays deterministic even for keys added after load.
func (idx keyOrderIndex) orderedKeys(prefix string, level map[string]interface{}) []string {
	ordered := make([]string, 0, len(level))
	taken := make(map[string]bool, len(level))

	for _, key := range idx[prefix] {
		if _, exists := level[key]; exists {
			ordered = append(ordered, key)
			taken[key] = true
		}
	}

	var rest []string
	for key := range level {
		if !taken[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}
