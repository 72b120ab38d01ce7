// manager_test.go - CLI command test suite
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/hestia"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func readTree(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	doc, err := hestia.NewYAMLSource().Read(path)
	if err != nil {
		t.Fatalf("failed to read %s back: %v", path, err)
	}
	return doc.Tree
}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.app == nil {
		t.Fatal("Manager.app not initialized")
	}
	if manager.auditLogger != nil {
		t.Error("audit logger should be nil until WithAudit")
	}
}

func TestManagerWithAudit(t *testing.T) {
	config := hestia.DefaultAuditConfig()
	config.OutputFile = filepath.Join(t.TempDir(), "audit.jsonl")
	config.FlushInterval = 0

	auditLogger, err := hestia.NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditLogger.Close() }()

	manager := NewManager().WithAudit(auditLogger)
	if manager.auditLogger == nil {
		t.Error("WithAudit did not attach the logger")
	}
}

func TestConfigGet(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "server:\n  port: 8080\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "get", file, "server.port"}); err != nil {
		t.Errorf("config get failed: %v", err)
	}
	if err := manager.Run([]string{"config", "get", file, "missing.key"}); err == nil {
		t.Error("config get on a missing key should fail")
	}
}

func TestConfigSet(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "server:\n  port: 8080\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "set", file, "server.port", "9090"}); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	tree := readTree(t, file)
	server := tree["server"].(map[string]interface{})
	if server["port"] != 9090 {
		t.Errorf("port = %v", server["port"])
	}
}

func TestConfigSetNewKeyAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "fresh.yaml")

	manager := NewManager()
	if err := manager.Run([]string{"config", "set", file, "app.name", "hestia"}); err != nil {
		t.Fatalf("config set on a new file failed: %v", err)
	}

	tree := readTree(t, file)
	app := tree["app"].(map[string]interface{})
	if app["name"] != "hestia" {
		t.Errorf("app.name = %v", app["name"])
	}
}

func TestConfigSetParsesScalars(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "a: 1\n")

	manager := NewManager()
	for _, args := range [][]string{
		{"config", "set", file, "flag", "true"},
		{"config", "set", file, "count", "42"},
		{"config", "set", file, "name", "text"},
	} {
		if err := manager.Run(args); err != nil {
			t.Fatalf("Run(%v) failed: %v", args, err)
		}
	}

	tree := readTree(t, file)
	if tree["flag"] != true {
		t.Errorf("flag = %v (%T)", tree["flag"], tree["flag"])
	}
	if tree["count"] != 42 {
		t.Errorf("count = %v (%T)", tree["count"], tree["count"])
	}
	if tree["name"] != "text" {
		t.Errorf("name = %v", tree["name"])
	}
}

func TestConfigDelete(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "keep: 1\ndrop: 2\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "delete", file, "drop"}); err != nil {
		t.Fatalf("config delete failed: %v", err)
	}

	tree := readTree(t, file)
	if _, present := tree["drop"]; present {
		t.Error("deleted key still present")
	}
	if tree["keep"] != 1 {
		t.Errorf("keep = %v", tree["keep"])
	}
}

func TestConfigList(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "server:\n  port: 8080\n  host: localhost\ndebug: true\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "list", file}); err != nil {
		t.Errorf("config list failed: %v", err)
	}
	if err := manager.Run([]string{"config", "list", file, "--prefix", "server"}); err != nil {
		t.Errorf("config list with prefix failed: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	broken := filepath.Join(dir, "broken.yaml")
	writeConfig(t, good, "valid: true\n")
	writeConfig(t, broken, "valid: [unclosed\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "validate", good}); err != nil {
		t.Errorf("valid file rejected: %v", err)
	}
	if err := manager.Run([]string{"config", "validate", broken}); err == nil {
		t.Error("broken file accepted")
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "new.yaml")

	manager := NewManager()
	if err := manager.Run([]string{"config", "init", file}); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if len(readTree(t, file)) == 0 {
		t.Error("init produced an empty configuration")
	}

	// A second init must refuse to clobber the file.
	if err := manager.Run([]string{"config", "init", file}); err == nil {
		t.Error("config init overwrote an existing file")
	}
}

func TestConfigInitTemplates(t *testing.T) {
	dir := t.TempDir()

	manager := NewManager()
	for _, template := range []string{"default", "server", "minimal"} {
		file := filepath.Join(dir, template+".yaml")
		if err := manager.Run([]string{"config", "init", file, "--template", template}); err != nil {
			t.Errorf("init --template %s failed: %v", template, err)
			continue
		}
		if len(readTree(t, file)) == 0 {
			t.Errorf("template %s produced an empty configuration", template)
		}
	}
}

func TestConfigEditDirectoryFragments(t *testing.T) {
	dir := t.TempDir()
	fragA := filepath.Join(dir, "10-base.yaml")
	fragB := filepath.Join(dir, "20-extra.yaml")
	writeConfig(t, fragA, "alpha: 1\n")
	writeConfig(t, fragB, "beta: 2\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "set", dir, "beta", "20"}); err != nil {
		t.Fatalf("config set on directory failed: %v", err)
	}

	treeA := readTree(t, fragA)
	treeB := readTree(t, fragB)
	if treeB["beta"] != 20 {
		t.Errorf("owning fragment not updated: %v", treeB)
	}
	if _, leaked := treeA["beta"]; leaked {
		t.Error("edit leaked into a non-owning fragment")
	}
}

func TestConfigGetDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "10-base.yaml"), "value: base\n")
	writeConfig(t, filepath.Join(dir, "20-override.yaml"), "value: override\n")

	manager := NewManager()
	if err := manager.Run([]string{"config", "get", dir, "value"}); err != nil {
		t.Errorf("config get on directory failed: %v", err)
	}
}

func TestWatchRejectsInvalidInterval(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, file, "key: value\n")

	manager := NewManager()
	if err := manager.Run([]string{"watch", file, "--interval", "not_a_duration"}); err == nil {
		t.Error("invalid interval accepted")
	}
}

func TestAuditStatsCommand(t *testing.T) {
	auditFile := filepath.Join(t.TempDir(), "audit.jsonl")

	config := hestia.DefaultAuditConfig()
	config.OutputFile = auditFile
	config.FlushInterval = 0
	logger, err := hestia.NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	logger.Log(hestia.AuditInfo, "config_load", "hestia", "/tmp/x.yaml", nil, nil, nil)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	manager := NewManager()
	if err := manager.Run([]string{"audit", "stats", "--output", auditFile}); err != nil {
		t.Errorf("audit stats failed: %v", err)
	}
}

func TestInfoCommand(t *testing.T) {
	manager := NewManager()
	if err := manager.Run([]string{"info"}); err != nil {
		t.Errorf("info failed: %v", err)
	}
	if err := manager.Run([]string{"info", "--verbose"}); err != nil {
		t.Errorf("info --verbose failed: %v", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	manager := NewManager()
	for _, shell := range []string{"bash", "zsh", "fish"} {
		if err := manager.Run([]string{"completion", shell}); err != nil {
			t.Errorf("completion %s failed: %v", shell, err)
		}
	}
	if err := manager.Run([]string{"completion", "powershell"}); err == nil {
		t.Error("unsupported shell accepted")
	}
}

func TestCommandAuditTrail(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeConfig(t, file, "key: old\n")

	config := hestia.DefaultAuditConfig()
	config.OutputFile = filepath.Join(dir, "audit.jsonl")
	config.FlushInterval = time.Second
	logger, err := hestia.NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}

	manager := NewManager().WithAudit(logger)
	if err := manager.Run([]string{"config", "set", file, "key", "new"}); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(config.OutputFile)
	if err != nil {
		t.Fatalf("audit file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("audit trail empty after CLI edit")
	}
}
