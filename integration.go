// integration.go: Layered application configuration over Hestia + FlashFlags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"fmt"
	"os"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"
)

// AppConfig layers the usual application configuration sources into one
// lookup: explicit overrides beat command-line flags, flags beat
// environment variables (FlashFlags resolves those two), both beat the
// configuration file served by an attached Manager, and flag defaults
// come last.
//
// Flag names use dashes, file keys use dots: the flag "server-port"
// reads the file key "server.port" and the environment variable
// APPNAME_SERVER_PORT.
type AppConfig struct {
	flags   *flashflags.FlagSet
	manager *Manager

	appName        string
	appDescription string
	appVersion     string

	// Explicit overrides, highest precedence.
	values map[string]interface{}
}

// NewAppConfig creates an application configuration rooted at appName,
// which also prefixes environment variable lookups.
func NewAppConfig(appName string) *AppConfig {
	return &AppConfig{
		flags:   flashflags.New(appName),
		appName: appName,
		values:  make(map[string]interface{}),
	}
}

// SetDescription sets the application description for help text.
func (ac *AppConfig) SetDescription(description string) *AppConfig {
	ac.appDescription = description
	ac.flags.SetDescription(description)
	return ac
}

// SetVersion sets the application version for help text.
func (ac *AppConfig) SetVersion(version string) *AppConfig {
	ac.appVersion = version
	ac.flags.SetVersion(version)
	return ac
}

// WithManager attaches the configuration file layer. Values read
// through the manager stay hot-reloadable, so a flag left at its
// default keeps tracking the file.
func (ac *AppConfig) WithManager(manager *Manager) *AppConfig {
	ac.manager = manager
	return ac
}

// StringFlag adds a string configuration flag.
func (ac *AppConfig) StringFlag(name, defaultValue, usage string) *AppConfig {
	ac.flags.String(name, defaultValue, usage)
	return ac
}

// IntFlag adds an integer configuration flag.
func (ac *AppConfig) IntFlag(name string, defaultValue int, usage string) *AppConfig {
	ac.flags.Int(name, defaultValue, usage)
	return ac
}

// BoolFlag adds a boolean configuration flag.
func (ac *AppConfig) BoolFlag(name string, defaultValue bool, usage string) *AppConfig {
	ac.flags.Bool(name, defaultValue, usage)
	return ac
}

// DurationFlag adds a duration configuration flag.
func (ac *AppConfig) DurationFlag(name string, defaultValue time.Duration, usage string) *AppConfig {
	ac.flags.Duration(name, defaultValue, usage)
	return ac
}

// Float64Flag adds a float64 configuration flag.
func (ac *AppConfig) Float64Flag(name string, defaultValue float64, usage string) *AppConfig {
	ac.flags.Float64(name, defaultValue, usage)
	return ac
}

// StringSliceFlag adds a string slice configuration flag.
func (ac *AppConfig) StringSliceFlag(name string, defaultValue []string, usage string) *AppConfig {
	ac.flags.StringSlice(name, defaultValue, usage)
	return ac
}

// Parse parses command-line arguments. Environment variables resolve
// through the APPNAME_ prefix.
func (ac *AppConfig) Parse(args []string) error {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return fmt.Errorf("help requested")
		}
	}

	ac.flags.SetEnvPrefix(strings.ToUpper(ac.appName))
	if err := ac.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command-line flags: %w", err)
	}
	return nil
}

// ParseArgs parses os.Args[1:].
func (ac *AppConfig) ParseArgs() error {
	return ac.Parse(os.Args[1:])
}

// ParseArgsOrExit parses command-line arguments and exits on help or
// error.
func (ac *AppConfig) ParseArgsOrExit() {
	if err := ac.ParseArgs(); err != nil {
		if err.Error() == "help requested" {
			ac.PrintUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		ac.PrintUsage()
		os.Exit(1)
	}
}

// GetString retrieves a string value through the precedence chain.
func (ac *AppConfig) GetString(key string) string {
	if val, exists := ac.values[key]; exists {
		if str, ok := val.(string); ok {
			return str
		}
	}
	if ac.flagChanged(key) {
		return ac.flags.GetString(key)
	}
	if ac.manager != nil {
		if v, ok := ac.manager.Get(ac.flagNameToConfigKey(key), nil).(string); ok {
			return v
		}
	}
	return ac.flags.GetString(key)
}

// GetInt retrieves an integer value through the precedence chain.
func (ac *AppConfig) GetInt(key string) int {
	if val, exists := ac.values[key]; exists {
		if intVal, ok := val.(int); ok {
			return intVal
		}
	}
	if ac.flagChanged(key) {
		return ac.flags.GetInt(key)
	}
	if ac.manager != nil {
		if v, err := toInt64(ac.manager.Get(ac.flagNameToConfigKey(key), nil)); err == nil {
			return int(v)
		}
	}
	return ac.flags.GetInt(key)
}

// GetBool retrieves a boolean value through the precedence chain.
func (ac *AppConfig) GetBool(key string) bool {
	if val, exists := ac.values[key]; exists {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	if ac.flagChanged(key) {
		return ac.flags.GetBool(key)
	}
	if ac.manager != nil {
		if v, ok := ac.manager.Get(ac.flagNameToConfigKey(key), nil).(bool); ok {
			return v
		}
	}
	return ac.flags.GetBool(key)
}

// GetDuration retrieves a duration value through the precedence chain.
func (ac *AppConfig) GetDuration(key string) time.Duration {
	if val, exists := ac.values[key]; exists {
		if durVal, ok := val.(time.Duration); ok {
			return durVal
		}
	}
	if ac.flagChanged(key) {
		return ac.flags.GetDuration(key)
	}
	if ac.manager != nil {
		if raw := ac.manager.Get(ac.flagNameToConfigKey(key), nil); raw != nil {
			if v, err := toDuration(raw); err == nil {
				return v
			}
		}
	}
	return ac.flags.GetDuration(key)
}

// GetStringSlice retrieves a string slice value through the precedence
// chain.
func (ac *AppConfig) GetStringSlice(key string) []string {
	if val, exists := ac.values[key]; exists {
		if sliceVal, ok := val.([]string); ok {
			return sliceVal
		}
	}
	if ac.flagChanged(key) {
		return ac.flags.GetStringSlice(key)
	}
	if ac.manager != nil {
		if v := ac.manager.GetStringSlice(ac.flagNameToConfigKey(key), nil); v != nil {
			return v
		}
	}
	return ac.flags.GetStringSlice(key)
}

// Set explicitly sets a configuration value, highest precedence.
func (ac *AppConfig) Set(key string, value interface{}) {
	ac.values[key] = value
}

// PrintUsage prints help information for all flags.
func (ac *AppConfig) PrintUsage() {
	ac.flags.PrintHelp()
}

// BoundFlags returns a map from flag names to the configuration file
// keys they read.
func (ac *AppConfig) BoundFlags() map[string]string {
	result := make(map[string]string)
	ac.flags.VisitAll(func(flag *flashflags.Flag) {
		result[flag.Name()] = ac.flagNameToConfigKey(flag.Name())
	})
	return result
}

// FlagToEnvKey converts a flag name to its environment variable key:
// "server-port" becomes "APPNAME_SERVER_PORT".
func (ac *AppConfig) FlagToEnvKey(flagName string) string {
	return strings.ToUpper(ac.appName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}

func (ac *AppConfig) flagNameToConfigKey(flagName string) string {
	return strings.ReplaceAll(flagName, "-", ".")
}

func (ac *AppConfig) flagChanged(name string) bool {
	flag := ac.flags.Lookup(name)
	return flag != nil && flag.Changed()
}
