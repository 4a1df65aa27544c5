// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package executil runs external commands, capturing stdout and stderr
// separately.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

type options struct {
	ctx     context.Context
	timeout time.Duration
}

type Opt func(*options) error

// WithContext runs the command with CommandContext.
func WithContext(ctx context.Context) Opt {
	return func(o *options) error {
		o.ctx = ctx
		return nil
	}
}

// WithTimeout bounds the command's wall-clock run time. On expiry the child
// is killed and Run returns an error satisfying
// errors.Is(err, context.DeadlineExceeded).
func WithTimeout(timeout time.Duration) Opt {
	return func(o *options) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		o.timeout = timeout
		return nil
	}
}

// Result describes a command that ran to completion, successfully or not.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes args[0] with the remaining arguments. A nonzero exit status
// is not an error: it is reported in Result.ExitCode so that callers can
// classify it. The returned error is non-nil only when the command could not
// be run to completion (spawn failure, cancellation, timeout).
func Run(args []string, opts ...Opt) (*Result, error) {
	var o options
	for _, f := range opts {
		if err := f(&o); err != nil {
			return nil, err
		}
	}
	if len(args) == 0 {
		return nil, errors.New("got empty args")
	}

	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// The child runs in its own process group, so a terminal interrupt
	// reaches the caller first and teardown stays in the caller's hands.
	cmd.SysProcAttr = sysProcAttr
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return &Result{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}, nil
	}
	if ctxErr := context.Cause(ctx); ctxErr != nil {
		return nil, fmt.Errorf("command %v did not complete: %w", args, ctxErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run %v: %w", args, err)
	}
	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitErr.ExitCode(),
	}, nil
}
