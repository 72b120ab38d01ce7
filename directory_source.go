// directory_source.go: Directory-aggregating source for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"os"
	"sort"

	"github.com/agilira/go-errors"
)

// priorityKey is the optional top-level key a fragment can carry to
// control merge order within its directory.
const priorityKey = "priority"

// DirectorySource aggregates every YAML fragment directly under a
// directory into one document. Fragments merge in ascending order, so
// later fragments override earlier ones.
//
// Ordering is by filename unless at least one fragment declares a
// numeric top-level "priority", in which case fragments sort by
// priority ascending (missing priority counts as zero) with filename
// as the tiebreaker.
//
// A fragment that fails to parse is skipped and reported through the
// error handler; the remaining fragments still load. Only when every
// fragment fails does Read return an error.
type DirectorySource struct {
	files   *YAMLSource
	onError ErrorHandler
}

// NewDirectorySource creates a directory source that reads fragments
// through a YAML source. onError receives per-fragment parse failures
// and may be nil.
func NewDirectorySource(onError ErrorHandler) *DirectorySource {
	return &DirectorySource{files: NewYAMLSource(), onError: onError}
}

// Supports reports whether path is an existing directory.
func (s *DirectorySource) Supports(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Read loads every fragment under path and merges them. The returned
// document lists each successfully read fragment in merge order so the
// manager can track and write back individual files.
func (s *DirectorySource) Read(path string) (*Document, error) {
	fragments, err := listFragments(path, yamlExtensions)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, errors.New(ErrCodeFileNotFound, "configuration directory contains no fragments").
			WithContext("path", path)
	}

	type loaded struct {
		doc      *Document
		path     string
		priority float64
		hasPrio  bool
	}

	var (
		docs      []loaded
		anyPrio   bool
		firstErr  error
		failCount int
	)
	for _, fragment := range fragments {
		doc, err := s.files.Read(fragment)
		if err != nil {
			failCount++
			if firstErr == nil {
				firstErr = err
			}
			if s.onError != nil {
				s.onError(err, fragment)
			}
			continue
		}
		entry := loaded{doc: doc, path: fragment}
		if prio, ok := fragmentPriority(doc.Tree); ok {
			entry.priority = prio
			entry.hasPrio = true
			anyPrio = true
		}
		docs = append(docs, entry)
	}

	if len(docs) == 0 {
		return nil, errors.Wrap(firstErr, ErrCodeAllSourcesFailed, "every fragment in directory failed to load").
			WithContext("path", path).
			WithContext("fragments", failCount)
	}

	// Filename order is already in place from the walker; re-sort by
	// priority only when some fragment opted in.
	if anyPrio {
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].priority < docs[j].priority
		})
	}

	trees := make([]map[string]interface{}, 0, len(docs))
	files := make([]FileRecord, 0, len(docs))
	for _, entry := range docs {
		trees = append(trees, entry.doc.Tree)
		files = append(files, entry.doc.Files...)
	}

	return &Document{Tree: Merge(trees...), Files: files}, nil
}

// Write rejects directory targets: write-back always addresses a
// concrete fragment file, which the manager routes to the file source.
func (s *DirectorySource) Write(path string, tree map[string]interface{}, keyPaths []string) error {
	return errors.New(ErrCodeWriteError, "cannot write to a configuration directory, target a fragment file").
		WithContext("path", path)
}

// fragmentPriority extracts a numeric top-level priority from a
// fragment tree.
func fragmentPriority(tree map[string]interface{}) (float64, bool) {
	raw, ok := tree[priorityKey]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
