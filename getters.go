// getters.go: Typed convenience accessors for Hestia
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"strconv"
	"time"
)

// GetString returns the string at keyPath, or def when the key is
// absent or not a string.
func (m *Manager) GetString(keyPath, def string) string {
	if v, ok := m.Get(keyPath, nil).(string); ok {
		return v
	}
	return def
}

// GetInt returns the integer at keyPath. YAML decodes whole numbers as
// int, but float64 values with no fractional part are accepted too.
func (m *Manager) GetInt(keyPath string, def int) int {
	switch v := m.Get(keyPath, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return def
}

// GetFloat64 returns the float at keyPath, accepting integer values.
func (m *Manager) GetFloat64(keyPath string, def float64) float64 {
	switch v := m.Get(keyPath, nil).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// GetBool returns the boolean at keyPath.
func (m *Manager) GetBool(keyPath string, def bool) bool {
	if v, ok := m.Get(keyPath, nil).(bool); ok {
		return v
	}
	return def
}

// GetDuration returns the duration at keyPath. Strings parse through
// time.ParseDuration, numbers count as seconds, matching how durations
// are usually written in YAML.
func (m *Manager) GetDuration(keyPath string, def time.Duration) time.Duration {
	switch v := m.Get(keyPath, nil).(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// GetStringSlice returns the list of strings at keyPath. Lists with a
// non-string element fall back to def.
func (m *Manager) GetStringSlice(keyPath string, def []string) []string {
	list, ok := m.Get(keyPath, nil).([]interface{})
	if !ok {
		return def
	}
	result := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return def
		}
		result = append(result, s)
	}
	return result
}

// parseScalar interprets a string as the YAML-style scalar it spells:
// booleans, integers, floats, null, otherwise the string itself. Used
// by callers that accept values from flags or command lines.
func parseScalar(value string) interface{} {
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
