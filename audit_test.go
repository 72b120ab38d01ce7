// audit_test.go - Audit trail test suite
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hestia

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newJSONLAuditConfig(t *testing.T) AuditConfig {
	t.Helper()
	config := DefaultAuditConfig()
	config.OutputFile = filepath.Join(t.TempDir(), "audit.jsonl")
	config.FlushInterval = 0 // flush manually in tests
	return config
}

func readAuditEvents(t *testing.T, path string) []AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open audit file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("malformed audit line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return events
}

func TestAuditLoggerJSONL(t *testing.T) {
	config := newJSONLAuditConfig(t)
	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditor.Close() }()

	auditor.Log(AuditInfo, "config_load", "hestia", "/etc/app.yaml", nil, nil, nil)
	auditor.Log(AuditCritical, "config_set", "hestia", "/etc/app.yaml",
		"old", "new", map[string]interface{}{"key": "server.port"})
	if err := auditor.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	events := readAuditEvents(t, config.OutputFile)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Event != "config_load" || first.Component != "hestia" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.Checksum == "" {
		t.Error("event missing integrity checksum")
	}
	if first.ProcessName != "hestia" || first.ProcessID == 0 {
		t.Errorf("process identity not recorded: %s/%d", first.ProcessName, first.ProcessID)
	}

	second := events[1]
	if second.Level != AuditCritical {
		t.Errorf("level = %v", second.Level)
	}
	if second.OldValue != "old" || second.NewValue != "new" {
		t.Errorf("values not recorded: %v -> %v", second.OldValue, second.NewValue)
	}
	if second.Context["key"] != "server.port" {
		t.Errorf("context not recorded: %v", second.Context)
	}
}

func TestAuditLoggerMinLevelFilter(t *testing.T) {
	config := newJSONLAuditConfig(t)
	config.MinLevel = AuditWarn

	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditor.Close() }()

	auditor.Log(AuditInfo, "dropped", "hestia", "", nil, nil, nil)
	auditor.Log(AuditWarn, "kept", "hestia", "", nil, nil, nil)
	if err := auditor.Flush(); err != nil {
		t.Fatal(err)
	}

	events := readAuditEvents(t, config.OutputFile)
	if len(events) != 1 || events[0].Event != "kept" {
		t.Errorf("min level filter failed: %+v", events)
	}
}

func TestAuditLoggerNilSafety(t *testing.T) {
	var auditor *AuditLogger

	auditor.Log(AuditInfo, "event", "hestia", "", nil, nil, nil)
	if err := auditor.Flush(); err != nil {
		t.Errorf("nil Flush returned %v", err)
	}
	if err := auditor.Close(); err != nil {
		t.Errorf("nil Close returned %v", err)
	}
	stats, err := auditor.Stats()
	if err != nil || stats != nil {
		t.Errorf("nil Stats = %v, %v, want nil, nil", stats, err)
	}
}

func TestAuditLoggerFlushAtCapacity(t *testing.T) {
	config := newJSONLAuditConfig(t)
	config.BufferSize = 3

	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditor.Close() }()

	for i := 0; i < 3; i++ {
		auditor.Log(AuditInfo, "fill", "hestia", "", nil, nil, nil)
	}

	// No explicit Flush: hitting capacity must have written through.
	events := readAuditEvents(t, config.OutputFile)
	if len(events) != 3 {
		t.Errorf("expected capacity flush to persist 3 events, got %d", len(events))
	}
}

func TestAuditLoggerCloseFlushesPending(t *testing.T) {
	config := newJSONLAuditConfig(t)
	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}

	auditor.Log(AuditInfo, "pending", "hestia", "", nil, nil, nil)
	if err := auditor.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readAuditEvents(t, config.OutputFile)
	if len(events) != 1 || events[0].Event != "pending" {
		t.Errorf("Close lost buffered events: %+v", events)
	}
}

func TestAuditChecksumDiffersPerEvent(t *testing.T) {
	config := newJSONLAuditConfig(t)
	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditor.Close() }()

	auditor.Log(AuditInfo, "event_a", "hestia", "", nil, "one", nil)
	auditor.Log(AuditInfo, "event_b", "hestia", "", nil, "two", nil)
	if err := auditor.Flush(); err != nil {
		t.Fatal(err)
	}

	events := readAuditEvents(t, config.OutputFile)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Checksum == events[1].Checksum {
		t.Error("distinct events produced identical checksums")
	}
}

func TestAuditSQLiteBackend(t *testing.T) {
	config := DefaultAuditConfig()
	config.OutputFile = filepath.Join(t.TempDir(), "audit.db")
	config.FlushInterval = 0

	auditor, err := NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = auditor.Close() }()

	auditor.Log(AuditInfo, "config_load", "hestia", "/etc/app.yaml", nil, nil, nil)
	auditor.Log(AuditWarn, "fragment_skipped", "hestia", "/etc/conf.d/bad.yaml",
		nil, nil, map[string]interface{}{"error": "parse failure"})
	if err := auditor.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	stats, err := auditor.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d", stats.TotalEvents)
	}
	if stats.EventsByEvent["config_load"] != 1 || stats.EventsByEvent["fragment_skipped"] != 1 {
		t.Errorf("EventsByEvent = %v", stats.EventsByEvent)
	}
	if stats.EventsByLevel[AuditInfo.String()] != 1 {
		t.Errorf("EventsByLevel = %v", stats.EventsByLevel)
	}
}

func TestAuditLevelString(t *testing.T) {
	tests := []struct {
		level AuditLevel
		want  string
	}{
		{AuditInfo, "INFO"},
		{AuditWarn, "WARN"},
		{AuditCritical, "CRITICAL"},
		{AuditSecurity, "SECURITY"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestManagerAuditsLifecycle(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeTestFile(t, file, "key: value\n")
	auditPath := filepath.Join(dir, "audit.jsonl")

	m := newTestManager(t, Options{
		ReloadInterval: time.Hour,
		Audit: AuditConfig{
			Enabled:    true,
			OutputFile: auditPath,
			BufferSize: 16,
		},
	})
	if err := m.Load(file); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("key", "changed"); err != nil {
		t.Fatal(err)
	}
	if err := m.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	events := readAuditEvents(t, auditPath)
	var seen []string
	for _, event := range events {
		seen = append(seen, event.Event)
	}
	joined := strings.Join(seen, ",")
	for _, want := range []string{"config_load", "config_set", "config_sync"} {
		if !strings.Contains(joined, want) {
			t.Errorf("audit trail missing %s: %v", want, seen)
		}
	}
}
