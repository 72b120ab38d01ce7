// binder.go: Fluent binding of configuration values to typed variables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"fmt"
	"strconv"
	"time"

	"github.com/agilira/go-errors"
)

// Binder applies configuration values to typed target variables with a
// fluent API. Bindings collect lazily and run on Apply; Apply stops at
// the first conversion error and reports it with its key.
//
// Usage:
//
//	var host string
//	var port int
//	err := hestia.Bind(manager.Snapshot()).
//	    BindString(&host, "server.host", "localhost").
//	    BindInt(&port, "server.port", 8080).
//	    Apply()
type Binder struct {
	tree     map[string]interface{}
	bindings []func() error
}

// Bind creates a binder over a configuration tree, typically a manager
// Snapshot.
func Bind(tree map[string]interface{}) *Binder {
	return &Binder{tree: tree}
}

// BindString binds a string value at the dot-notation key.
func (b *Binder) BindString(target *string, key string, defaultValue ...string) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		*target = toString(raw)
		return nil
	})
	return b
}

// BindInt binds an int value at the dot-notation key.
func (b *Binder) BindInt(target *int, key string, defaultValue ...int) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		v, err := toInt64(raw)
		if err != nil {
			return bindError(key, err)
		}
		*target = int(v)
		return nil
	})
	return b
}

// BindInt64 binds an int64 value at the dot-notation key.
func (b *Binder) BindInt64(target *int64, key string, defaultValue ...int64) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		v, err := toInt64(raw)
		if err != nil {
			return bindError(key, err)
		}
		*target = v
		return nil
	})
	return b
}

// BindBool binds a bool value at the dot-notation key.
func (b *Binder) BindBool(target *bool, key string, defaultValue ...bool) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		v, err := toBool(raw)
		if err != nil {
			return bindError(key, err)
		}
		*target = v
		return nil
	})
	return b
}

// BindFloat64 binds a float64 value at the dot-notation key.
func (b *Binder) BindFloat64(target *float64, key string, defaultValue ...float64) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		v, err := toFloat64(raw)
		if err != nil {
			return bindError(key, err)
		}
		*target = v
		return nil
	})
	return b
}

// BindDuration binds a time.Duration value at the dot-notation key.
// Strings parse as Go durations, numbers count as seconds.
func (b *Binder) BindDuration(target *time.Duration, key string, defaultValue ...time.Duration) *Binder {
	b.bindings = append(b.bindings, func() error {
		raw, ok := b.value(key)
		if !ok {
			if len(defaultValue) > 0 {
				*target = defaultValue[0]
			}
			return nil
		}
		v, err := toDuration(raw)
		if err != nil {
			return bindError(key, err)
		}
		*target = v
		return nil
	})
	return b
}

// Apply runs all collected bindings and returns the first error.
func (b *Binder) Apply() error {
	for _, bind := range b.bindings {
		if err := bind(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) value(key string) (interface{}, bool) {
	if b.tree == nil {
		return nil, false
	}
	return lookupPath(b.tree, splitKeyPath(key, nil))
}

func bindError(key string, err error) error {
	return errors.Wrap(err, ErrCodeInvalidConfig, "cannot bind configuration value").
		WithContext("key", key)
}

func toString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return 0, fmt.Errorf("value %v has a fractional part", v)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", value, value)
	}
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("value %v (%T) is not a boolean", value, value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", value, value)
	}
}

func toDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		return time.ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a duration", value, value)
	}
}
