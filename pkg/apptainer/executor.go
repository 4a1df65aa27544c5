// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package apptainer

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/agentloop"
	"github.com/sweagent-dev/sweagent/pkg/auditlog"
	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/executil"
)

// ToolName is the name under which the executor is registered with the
// agent loop.
const ToolName = "local_shell"

// BlockedTokenError is returned when a command contains a token from the
// blocklist. No subprocess has been spawned and no audit record written
// when this is returned.
type BlockedTokenError struct {
	Token string
}

func (e *BlockedTokenError) Error() string {
	return fmt.Sprintf("command contains blocked token %q", e.Token)
}

// ExitError is returned when a container command ran but exited nonzero.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("apptainer command failed with exit code %d: %s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Executor runs model-issued shell commands inside a fixed container image.
//
// Every command passes a token-level blocklist check before any subprocess
// is spawned, and every spawned command is appended to the tool audit log:
// full output on success, redacted output on failure.
type Executor struct {
	security *config.SecurityConfig
	commands *config.CommandConfig
	image    string

	auditPath string
}

// ExecutorOpt customizes an Executor.
type ExecutorOpt func(*Executor) error

// WithAuditLog overrides the destination of tool audit records. The
// default is [auditlog.ToolsLog] relative to the working directory.
func WithAuditLog(path string) ExecutorOpt {
	return func(x *Executor) error {
		if path == "" {
			return fmt.Errorf("audit log path must not be empty")
		}
		x.auditPath = path
		return nil
	}
}

// NewExecutor returns an executor bound to one image for the lifetime of a
// run. image is the resolved image path, which may differ from
// commands.apptainer_image when the caller pinned a specific SIF. A nil
// security config blocks nothing.
func NewExecutor(security *config.SecurityConfig, commands *config.CommandConfig, image string, opts ...ExecutorOpt) (*Executor, error) {
	if commands == nil {
		return nil, fmt.Errorf("command configuration is required")
	}
	if image == "" {
		return nil, fmt.Errorf("container image is required")
	}
	x := &Executor{
		security:  security,
		commands:  commands,
		image:     image,
		auditPath: auditlog.ToolsLog,
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Execute runs command inside the container and returns its output: stdout
// alone, unless the command also wrote to stderr, in which case both
// streams are returned under "STDOUT:" and "STDERR:" markers so diagnostics
// of a successful command are never dropped.
//
// No timeout is applied here; a hung command hangs the caller. Callers in
// unattended settings should bound ctx themselves.
func (x *Executor) Execute(ctx context.Context, command string) (string, error) {
	if err := x.checkBlocklist(command); err != nil {
		return "", err
	}

	argv := BuildExecArgv(x.commands, x.image, command)
	res, err := executil.Run(argv, executil.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to run apptainer: %w", err)
	}

	if res.ExitCode != 0 {
		logrus.WithFields(logrus.Fields{
			"command":    command,
			"returncode": res.ExitCode,
		}).Error("Apptainer command failed")
		if err := x.appendAudit(command, argv, res.ExitCode, auditlog.Redacted, auditlog.Redacted); err != nil {
			return "", err
		}
		return "", &ExitError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	if err := x.appendAudit(command, argv, 0, res.Stdout, res.Stderr); err != nil {
		return "", err
	}
	if res.Stderr != "" {
		return fmt.Sprintf("STDOUT:\n%s\nSTDERR:\n%s", res.Stdout, res.Stderr), nil
	}
	return res.Stdout, nil
}

// checkBlocklist tokenizes command with shell-word semantics and rejects it
// if any token exactly matches a blocked entry. Tokenization failures
// (unbalanced quotes) propagate: skipping the check on unparsable input
// would let a blocked token through.
func (x *Executor) checkBlocklist(command string) error {
	tokens, err := shellwords.Parse(command)
	if err != nil {
		return fmt.Errorf("failed to tokenize command: %w", err)
	}
	if x.security == nil {
		return nil
	}
	for _, token := range tokens {
		if slices.Contains(x.security.BlockedCommands, token) {
			logrus.WithField("token", token).Warn("Blocked command token detected")
			return &BlockedTokenError{Token: token}
		}
	}
	return nil
}

func (x *Executor) appendAudit(command string, argv []string, exitCode int, stdout, stderr string) error {
	rec := &auditlog.ToolRecord{
		Tool:     ToolName,
		Command:  command,
		Argv:     argv,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	if err := auditlog.Append(x.auditPath, rec); err != nil {
		return fmt.Errorf("failed to append tool audit record: %w", err)
	}
	return nil
}

// Tool exposes the executor to the agent loop as the local_shell tool.
func (x *Executor) Tool() agentloop.Tool {
	return agentloop.Tool{
		Name: ToolName,
		Description: "Execute a shell command in the Apptainer container. " +
			"Use this to run bash commands, list files, read files, write files, compile code, run tests, etc.",
		Schema: json.RawMessage(commandSchema),
		Invoke: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args struct {
				Command string `json:"command"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", fmt.Errorf("failed to parse %s arguments: %w", ToolName, err)
			}
			return x.Execute(ctx, args.Command)
		},
	}
}

const commandSchema = `{
	"type": "object",
	"properties": {
		"command": {
			"type": "string",
			"description": "The shell command to execute in the container"
		}
	},
	"required": ["command"],
	"additionalProperties": false
}`
