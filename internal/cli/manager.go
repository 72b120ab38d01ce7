// Package cli provides the command-line interface for Hestia
// configuration management.
//
// The CLI is built on the Orpheus framework and offers git-style
// subcommands for reading, editing, validating, and watching layered
// YAML configuration, plus audit trail inspection.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/agilira/hestia"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager orchestrates the CLI commands and their shared state.
type Manager struct {
	app         *orpheus.App
	auditLogger *hestia.AuditLogger // Optional audit integration
}

// NewManager creates the CLI manager with all commands registered.
func NewManager() *Manager {
	app := orpheus.New("hestia").
		SetDescription("Layered hot-reloadable YAML configuration management").
		SetVersion("1.0.0")

	manager := &Manager{app: app}

	manager.setupConfigCommands()
	manager.setupWatchCommand()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit enables audit logging for CLI operations that modify
// configuration.
func (m *Manager) WithAudit(auditLogger *hestia.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// Run executes the CLI with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupConfigCommands registers the 'config' command group: get, set,
// delete, list, validate, and init.
func (m *Manager) setupConfigCommands() {
	configCmd := orpheus.NewCommand("config", "Configuration file operations")

	// config get <path> <key>
	configCmd.Subcommand("get", "Get configuration value", m.handleConfigGet)

	// config set <path> <key> <value>
	configCmd.Subcommand("set", "Set configuration value", m.handleConfigSet)

	// config delete <path> <key>
	configCmd.Subcommand("delete", "Delete configuration key", m.handleConfigDelete)

	// config list <path> [--prefix=]
	listCmd := configCmd.Subcommand("list", "List configuration keys", m.handleConfigList)
	listCmd.AddFlag("prefix", "p", "", "Key prefix filter")

	// config validate <path>
	configCmd.Subcommand("validate", "Validate configuration file or directory", m.handleConfigValidate)

	// config init <path> [--template=default]
	initCmd := orpheus.NewCommand("init", "Initialize new configuration file").
		AddFlag("template", "t", "default", "Template type (default|server|minimal)").
		SetHandler(m.handleConfigInit)
	configCmd.AddSubcommand(initCmd)

	m.app.AddCommand(configCmd)
}

// setupWatchCommand registers the 'watch' command for live reload
// monitoring.
func (m *Manager) setupWatchCommand() {
	watchCmd := orpheus.NewCommand("watch", "Watch configuration for changes")
	watchCmd.SetHandler(m.handleWatch)
	watchCmd.AddFlag("interval", "i", "5s", "Change check interval")
	watchCmd.AddBoolFlag("verbose", "v", false, "Verbose output")

	m.app.AddCommand(watchCmd)
}

// setupUtilityCommands registers audit inspection, info, and shell
// completion.
func (m *Manager) setupUtilityCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")
	statsCmd := auditCmd.Subcommand("stats", "Show audit trail statistics", m.handleAuditStats)
	statsCmd.AddFlag("output", "o", "", "Audit database or JSONL file (default: system database)")
	m.app.AddCommand(auditCmd)

	infoCmd := orpheus.NewCommand("info", "System information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose system information")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
