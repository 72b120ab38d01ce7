// directory_source_test.go - Tests for the directory-aggregating source
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agilira/go-errors"
)

func TestDirectorySourceSupports(t *testing.T) {
	dir := t.TempDir()
	source := NewDirectorySource(nil)

	if !source.Supports(dir) {
		t.Error("existing directory not supported")
	}
	file := filepath.Join(dir, "config.yaml")
	writeTestFile(t, file, "k: 1\n")
	if source.Supports(file) {
		t.Error("regular file claimed by directory source")
	}
	if source.Supports(filepath.Join(dir, "missing")) {
		t.Error("missing path claimed by directory source")
	}
}

func TestDirectorySourceFilenameOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "10-base.yaml"), "value: base\nonly_base: 1\n")
	writeTestFile(t, filepath.Join(dir, "20-override.yaml"), "value: override\n")

	doc, err := NewDirectorySource(nil).Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if doc.Tree["value"] != "override" {
		t.Errorf("later filename should win, got %v", doc.Tree["value"])
	}
	if doc.Tree["only_base"] != 1 {
		t.Errorf("earlier fragment keys lost, got %v", doc.Tree["only_base"])
	}
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 file records, got %d", len(doc.Files))
	}
}

func TestDirectorySourcePriorityOrder(t *testing.T) {
	dir := t.TempDir()
	// Filenames sort z, y, x but priorities say x, y, z: priority wins
	// and the highest priority loads last, so "c" is the final value.
	writeTestFile(t, filepath.Join(dir, "z.yaml"), "priority: 1\nvalue: a\n")
	writeTestFile(t, filepath.Join(dir, "y.yaml"), "priority: 2\nvalue: b\n")
	writeTestFile(t, filepath.Join(dir, "x.yaml"), "priority: 3\nvalue: c\n")

	doc, err := NewDirectorySource(nil).Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.Tree["value"] != "c" {
		t.Errorf("highest priority should win, got %v", doc.Tree["value"])
	}
}

func TestDirectorySourceMissingPriorityCountsAsZero(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.yaml"), "priority: 5\nvalue: prioritized\n")
	writeTestFile(t, filepath.Join(dir, "b.yaml"), "value: unprioritized\n")

	doc, err := NewDirectorySource(nil).Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	// b has implicit priority 0, loads first; a overrides.
	if doc.Tree["value"] != "prioritized" {
		t.Errorf("explicit priority should override implicit zero, got %v", doc.Tree["value"])
	}
}

func TestDirectorySourceSkipsBrokenFragment(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "10-good.yaml"), "good: 1\n")
	writeTestFile(t, filepath.Join(dir, "20-broken.yaml"), "key: [unclosed\n")
	writeTestFile(t, filepath.Join(dir, "30-also-good.yaml"), "also: 2\n")

	var skipped []string
	source := NewDirectorySource(func(err error, path string) {
		skipped = append(skipped, path)
	})

	doc, err := source.Read(dir)
	if err != nil {
		t.Fatalf("broken fragment must not fail the load: %v", err)
	}
	if doc.Tree["good"] != 1 || doc.Tree["also"] != 2 {
		t.Errorf("surviving fragments incomplete: %v", doc.Tree)
	}
	if len(skipped) != 1 || filepath.Base(skipped[0]) != "20-broken.yaml" {
		t.Errorf("skip notification wrong: %v", skipped)
	}
	if len(doc.Files) != 2 {
		t.Errorf("expected 2 file records, got %d", len(doc.Files))
	}
}

func TestDirectorySourceAllFragmentsFail(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.yaml"), "key: [broken\n")
	writeTestFile(t, filepath.Join(dir, "b.yaml"), "also: [broken\n")

	_, err := NewDirectorySource(nil).Read(dir)
	if err == nil {
		t.Fatal("expected error when every fragment fails")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeAllSourcesFailed {
		t.Errorf("expected %s, got %v", ErrCodeAllSourcesFailed, err)
	}
}

func TestDirectorySourceEmptyDirectory(t *testing.T) {
	_, err := NewDirectorySource(nil).Read(t.TempDir())
	if err == nil {
		t.Fatal("expected error for directory without fragments")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeFileNotFound {
		t.Errorf("expected %s, got %v", ErrCodeFileNotFound, err)
	}
}

func TestDirectorySourceIgnoresNonFragments(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "k: 1\n")
	writeTestFile(t, filepath.Join(dir, "notes.txt"), "not yaml")
	writeTestFile(t, filepath.Join(dir, ".hidden.yaml"), "hidden: true\n")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	doc, err := NewDirectorySource(nil).Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Files) != 1 {
		t.Errorf("expected 1 fragment, got %d", len(doc.Files))
	}
	if _, hidden := doc.Tree["hidden"]; hidden {
		t.Error("hidden file was loaded")
	}
}

func TestDirectorySourceWriteRejected(t *testing.T) {
	dir := t.TempDir()
	err := NewDirectorySource(nil).Write(dir, map[string]interface{}{"k": 1}, []string{"k"})
	if err == nil {
		t.Fatal("expected directory write to be rejected")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeWriteError {
		t.Errorf("expected %s, got %v", ErrCodeWriteError, err)
	}
}
