// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package agentloop

import (
	"context"
	"encoding/json"
)

// Tool is one named capability the model may call during a run: a JSON
// schema describing its arguments and a function producing the result text.
// Both the sandboxed shell and every bridged filesystem tool are presented
// to the loop in this shape, so the loop never depends on where a tool's
// work actually happens.
type Tool struct {
	Name        string
	Description string

	// Schema is the JSON Schema of the arguments object.
	Schema json.RawMessage

	// Invoke runs the tool. The returned string is surfaced to the model
	// as the tool result. An error is surfaced to the model as an error
	// result for the same call; it does not abort the run.
	Invoke func(ctx context.Context, arguments json.RawMessage) (string, error)
}
