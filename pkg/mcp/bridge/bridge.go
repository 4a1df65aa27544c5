// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge gives the agent loop filesystem access through an MCP
// server process. The server runs outside the container and is rooted at
// the workspace testbed directory, which the container bind-mounts, so
// bridged writes and sandboxed shell commands see the same files.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/agentloop"
	"github.com/sweagent-dev/sweagent/pkg/auditlog"
	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/logrusutil"
	"github.com/sweagent-dev/sweagent/pkg/version"
	"github.com/sweagent-dev/sweagent/pkg/workspace"
)

const stderrHeader = "[mcp-server] "

// Factory builds Bridge instances from configuration. A nil workspace
// roots the server at the process working directory.
type Factory struct {
	cfg *config.MCPConfig
	ws  *workspace.Info
}

// New returns a Factory for cfg. ws may be nil.
func New(cfg *config.MCPConfig, ws *workspace.Info) *Factory {
	return &Factory{cfg: cfg, ws: ws}
}

// Bridge is one live MCP session over a spawned server process.
type Bridge struct {
	session    *mcp.ClientSession
	allowlist  map[string]struct{}
	allowedDir string
}

// Connect spawns the configured server rooted at the allowed directory,
// establishes the MCP session, and records the event in the audit log.
func (f *Factory) Connect(ctx context.Context) (*Bridge, error) {
	if f.cfg == nil || f.cfg.Path == "" {
		return nil, errors.New("mcp server path is required")
	}
	allowedDir, err := f.resolveAllowedDir()
	if err != nil {
		return nil, err
	}

	cmd := command(f.cfg, allowedDir)
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = stderrW

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "sweagent",
		Version: version.Version,
	}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	// The child holds its own copy of the write end; the parent's copy
	// must go so the forwarder sees EOF when the child exits.
	_ = stderrW.Close()
	if err != nil {
		_ = stderrR.Close()
		return nil, fmt.Errorf("failed to connect to MCP server %q: %w", f.cfg.Path, err)
	}
	go forwardStderr(stderrR)

	b := &Bridge{
		session:    session,
		allowedDir: allowedDir,
	}
	if len(f.cfg.ToolAllowlist) > 0 {
		b.allowlist = make(map[string]struct{}, len(f.cfg.ToolAllowlist))
		for _, name := range f.cfg.ToolAllowlist {
			b.allowlist[name] = struct{}{}
		}
	}

	if err := auditlog.Append(auditlog.MCPLog, initRecord{
		Event:         "mcp_server_initialized",
		Path:          f.cfg.Path,
		AllowedDir:    allowedDir,
		ToolAllowlist: f.cfg.ToolAllowlist,
	}); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to append MCP audit record: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"path":        f.cfg.Path,
		"allowed_dir": allowedDir,
		"tools":       f.cfg.ToolAllowlist,
	}).Info("Filesystem MCP server configured")
	return b, nil
}

func (f *Factory) resolveAllowedDir() (string, error) {
	if f.ws != nil {
		return f.ws.TestbedDir, nil
	}
	return os.Getwd()
}

// command builds the server invocation: `<path> serve <dir>` with the
// configured extra environment appended in key order.
func command(cfg *config.MCPConfig, allowedDir string) *exec.Cmd {
	cmd := exec.Command(cfg.Path, "serve", allowedDir)
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
		env = append(env, k+"="+cfg.Env[k])
	}
	cmd.Env = env
	return cmd
}

func forwardStderr(r io.ReadCloser) {
	defer r.Close()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logrusutil.ForwardJSON(logrus.StandardLogger(), scanner.Bytes(), stderrHeader)
	}
}

type initRecord struct {
	Event         string   `json:"event"`
	Path          string   `json:"path"`
	AllowedDir    string   `json:"allowed_dir"`
	ToolAllowlist []string `json:"tool_allowlist"`
}

// AllowedDir returns the directory the server is rooted at.
func (b *Bridge) AllowedDir() string {
	return b.allowedDir
}

// Tools lists the server's tools, drops those outside the allowlist, and
// adapts the rest for the agent loop.
func (b *Bridge) Tools(ctx context.Context) ([]agentloop.Tool, error) {
	res, err := b.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list MCP tools: %w", err)
	}
	tools := make([]agentloop.Tool, 0, len(res.Tools))
	for _, tool := range res.Tools {
		if b.allowlist != nil {
			if _, ok := b.allowlist[tool.Name]; !ok {
				logrus.Debugf("Dropping MCP tool %q: not in the allowlist", tool.Name)
				continue
			}
		}
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input schema of MCP tool %q: %w", tool.Name, err)
		}
		name := tool.Name
		tools = append(tools, agentloop.Tool{
			Name:        name,
			Description: tool.Description,
			Schema:      schema,
			Invoke: func(ctx context.Context, arguments json.RawMessage) (string, error) {
				return b.call(ctx, name, arguments)
			},
		})
	}
	return tools, nil
}

// call invokes one tool over the session. Server-side tool failures come
// back as results with IsError set and are converted to errors here; the
// loop then relays them to the model.
func (b *Bridge) call(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	params := &mcp.CallToolParams{Name: name}
	if len(bytes.TrimSpace(arguments)) > 0 {
		params.Arguments = arguments
	}
	res, err := b.session.CallTool(ctx, params)
	if err != nil {
		return "", fmt.Errorf("MCP tool %q failed: %w", name, err)
	}
	text := resultText(res)
	if res.IsError {
		if text == "" {
			text = fmt.Sprintf("MCP tool %q returned an error", name)
		}
		return "", errors.New(text)
	}
	return text, nil
}

// resultText flattens a tool result to the text the model sees: the text
// content blocks joined by newlines, or the structured content as JSON
// when no text was produced.
func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}

// Close shuts the session down, terminating the server process.
func (b *Bridge) Close() error {
	return b.session.Close()
}
