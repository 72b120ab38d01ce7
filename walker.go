// walker.go: Fragment discovery for directory sources
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
)

// listFragments returns the files directly under dir whose extension
// matches one of extensions, sorted by filename. Subdirectories are not
// descended into; a configuration directory is a flat set of fragments.
func listFragments(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrCodeFileNotFound, "configuration directory not found").
				WithContext("path", dir)
		}
		return nil, errors.Wrap(err, ErrCodeFileNotFound, "cannot read configuration directory").
			WithContext("path", dir)
	}

	var fragments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, known := range extensions {
			if ext == known {
				fragments = append(fragments, filepath.Join(dir, name))
				break
			}
		}
	}

	sort.Strings(fragments)
	return fragments, nil
}
