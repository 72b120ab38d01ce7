// source.go: Configuration source abstraction for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

// FileRecord describes one backing file's contribution to a loaded
// document: the concrete path that was read and the dotted key paths
// it defined, in document order. The key paths drive both change
// tracking and write-back, which persists only keys a file originally
// owned.
type FileRecord struct {
	// Path is the absolute or caller-relative path that was read.
	Path string

	// KeyPaths lists every leaf key path the file defined, dot
	// separated, in the order the file declared them. Empty maps and
	// lists count as leaves.
	KeyPaths []string
}

// Document is the result of reading a source: the parsed tree plus the
// per-file provenance needed for selective write-back.
type Document struct {
	// Tree holds the parsed configuration. For multi-file sources it
	// is the merged view with later files overriding earlier ones.
	Tree map[string]interface{}

	// Files lists each backing file in merge order.
	Files []FileRecord
}

// Source reads and writes configuration data at a path. A source
// decides for itself which paths it can handle; the manager probes
// registered sources in order and uses the first that claims support.
//
// Implementations must be safe for concurrent Read calls. Write is
// always serialized by the manager.
type Source interface {
	// Supports reports whether this source can handle the given path.
	// A false return is not an error, the manager just moves on.
	Supports(path string) bool

	// Read parses the configuration at path. An unparsable or missing
	// path returns a coded error; see the HESTIA_* error codes.
	Read(path string) (*Document, error)

	// Write persists tree to path, preserving the key ordering given
	// by keyPaths where the format supports ordering. The write must
	// be atomic: readers never observe a partially written file.
	Write(path string, tree map[string]interface{}, keyPaths []string) error
}
