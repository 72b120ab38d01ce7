// merger.go: Deterministic deep merge of configuration trees
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

// Merge performs an ordered deep merge of configuration trees into a
// fresh tree, leaving the inputs untouched. Later trees win on
// conflict: when both sides of a key hold nested trees they are merged
// recursively, in every other case (scalar vs scalar, list vs list,
// scalar vs tree) the later value replaces the earlier one entirely.
// Lists replace, they never concatenate.
//
// Merge(defaults, loaded) therefore means loaded overrides defaults,
// which is the form used both for the defaults overlay at load time and
// for fragment aggregation inside DirectorySource.
//
// The operation is left-associative and idempotent: Merge(t, t) yields
// a tree equal to t.
func Merge(trees ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, tree := range trees {
		mergeInto(result, tree)
	}
	return result
}

// mergeInto folds src into dst in place. Values copied out of src are
// deep-copied so the result never aliases an input tree.
func mergeInto(dst, src map[string]interface{}) {
	for key, value := range src {
		srcChild, srcIsTree := value.(map[string]interface{})
		if srcIsTree {
			if dstChild, dstIsTree := dst[key].(map[string]interface{}); dstIsTree {
				mergeInto(dstChild, srcChild)
				continue
			}
		}
		dst[key] = deepCopyValue(value)
	}
}
