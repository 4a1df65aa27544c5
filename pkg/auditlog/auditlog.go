// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditlog appends structured records of command executions and
// workspace lifecycle events to JSON-Lines files.
//
// Writes are append-only: one compact JSON object per line, parent
// directories created on demand. There is no rotation and no locking beyond
// the filesystem's own append guarantees; concurrent writers within one
// process are already sequential at the call sites, and cross-process
// coordination is out of scope for the single-instance-per-process usage
// pattern.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Fixed log locations, relative to the process working directory.
const (
	ToolsLog     = "logs/sweagent_tools.jsonl"
	MCPLog       = "logs/sweagent_mcp.jsonl"
	WorkspaceLog = "logs/sweagent_workspace.jsonl"
)

// Redacted replaces stdout and stderr in records of failed commands, so a
// failure is recorded without leaking potentially sensitive output.
const Redacted = "[redacted]"

// ToolRecord is one audit line for a sandboxed command execution.
// Stdout and Stderr hold the captured output on success and Redacted on
// failure.
type ToolRecord struct {
	Tool     string   `json:"tool"`
	Command  string   `json:"command"`
	Argv     []string `json:"argv"`
	ExitCode int      `json:"returncode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Event is one audit line for a lifecycle event, such as a workspace
// creation or an MCP server initialization.
type Event struct {
	Event  string         `json:"event"`
	Fields map[string]any `json:"-"`
}

// MarshalJSON flattens Fields next to the event name.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["event"] = e.Event
	return json.Marshal(m)
}

// Append writes record as one line to the JSONL file at path, creating
// parent directories as needed.
func Append(path string, record any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %q: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to audit log %q: %w", path, err)
	}
	return f.Close()
}
