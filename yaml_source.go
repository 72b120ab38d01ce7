// yaml_source.go: YAML file source for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"go.yaml.in/yaml/v3"
)

// yamlExtensions are the file extensions the YAML source claims.
var yamlExtensions = []string{".yaml", ".yml"}

// YAMLSource reads and writes single YAML files. Parsing goes through
// yaml.Node rather than straight into a map so the declaration order of
// keys survives into FileRecord.KeyPaths and can be reproduced on
// write-back.
type YAMLSource struct{}

// NewYAMLSource creates a YAML file source.
func NewYAMLSource() *YAMLSource {
	return &YAMLSource{}
}

// Supports reports whether path carries a YAML extension.
func (s *YAMLSource) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range yamlExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Read parses the YAML file at path. An empty file yields an empty
// tree, not an error. A file whose top level is not a mapping is a
// parse error: Hestia trees are keyed at the root.
func (s *YAMLSource) Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrCodeFileNotFound, "configuration file not found").
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, ErrCodeFileNotFound, "cannot read configuration file").
			WithContext("path", path)
	}

	tree, keyPaths, err := parseYAMLTree(data, path)
	if err != nil {
		return nil, err
	}

	return &Document{
		Tree:  tree,
		Files: []FileRecord{{Path: path, KeyPaths: keyPaths}},
	}, nil
}

// Write serializes tree to path atomically, emitting keys in the order
// keyPaths records. Keys not present in keyPaths are appended sorted,
// so a tree that grew since load still round-trips deterministically.
// Parent directories are created as needed.
func (s *YAMLSource) Write(path string, tree map[string]interface{}, keyPaths []string) error {
	node, err := buildYAMLNode(tree, buildKeyOrder(keyPaths), "")
	if err != nil {
		return errors.Wrap(err, ErrCodeWriteError, "cannot serialize configuration").
			WithContext("path", path)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, ErrCodeWriteError, "cannot serialize configuration").
			WithContext("path", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, ErrCodeWriteError, "cannot create configuration directory").
			WithContext("path", path)
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data to a temporary file in the target
// directory and renames it into place. Same filesystem, so the rename
// is atomic and readers never see a torn file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tempPath := filepath.Join(dir, "."+base+".tmp."+fmt.Sprintf("%d", timecache.CachedTimeNano()))

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrap(err, ErrCodeWriteError, "cannot write temporary file").
			WithContext("path", path)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeWriteError, "cannot replace configuration file").
			WithContext("path", path)
	}
	return nil
}

// parseYAMLTree decodes data into a tree and the leaf key paths in
// document order.
func parseYAMLTree(data []byte, path string) (map[string]interface{}, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, errors.Wrap(err, ErrCodeParseError, "invalid YAML").
			WithContext("path", path)
	}

	// Empty or comment-only files decode to a zero node.
	if root.Kind == 0 || len(root.Content) == 0 {
		return map[string]interface{}{}, nil, nil
	}

	body := root.Content[0]
	if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
		return map[string]interface{}{}, nil, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, nil, errors.New(ErrCodeParseError, "top-level YAML value must be a mapping").
			WithContext("path", path)
	}

	value, err := decodeYAMLNode(body)
	if err != nil {
		return nil, nil, errors.Wrap(err, ErrCodeParseError, "invalid YAML").
			WithContext("path", path)
	}
	tree := value.(map[string]interface{})

	var keyPaths []string
	collectNodeKeyPaths(body, "", &keyPaths)
	return tree, keyPaths, nil
}

// decodeYAMLNode converts a yaml.Node into plain Go values: mappings
// become map[string]interface{}, sequences []interface{}, scalars their
// decoded value.
func decodeYAMLNode(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.MappingNode:
		result := make(map[string]interface{}, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			result[key] = value
		}
		return result, nil
	case yaml.SequenceNode:
		result := make([]interface{}, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := decodeYAMLNode(item)
			if err != nil {
				return nil, err
			}
			result = append(result, value)
		}
		return result, nil
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	default:
		var value interface{}
		if err := node.Decode(&value); err != nil {
			return nil, err
		}
		return value, nil
	}
}

// collectNodeKeyPaths walks a mapping node and appends the dotted path
// of every leaf in document order. Nested mappings recurse; sequences,
// scalars, and empty mappings are leaves.
func collectNodeKeyPaths(node *yaml.Node, prefix string, out *[]string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]

		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if value.Kind == yaml.MappingNode && len(value.Content) > 0 {
			collectNodeKeyPaths(value, fullKey, out)
		} else {
			*out = append(*out, fullKey)
		}
	}
}

// buildYAMLNode turns a tree back into a yaml.Node, ordering each
// mapping level per the recorded key order.
func buildYAMLNode(value interface{}, order keyOrderIndex, prefix string) (*yaml.Node, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range order.orderedKeys(prefix, v) {
			childPrefix := key
			if prefix != "" {
				childPrefix = prefix + "." + key
			}
			child, err := buildYAMLNode(v[key], order, childPrefix)
			if err != nil {
				return nil, err
			}
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
			node.Content = append(node.Content, keyNode, child)
		}
		return node, nil
	case []interface{}:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := buildYAMLNode(item, order, prefix)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}
