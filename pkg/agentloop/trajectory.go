// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package agentloop

import (
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

// TrajectoryEntry is one line of a run's trajectory file: either an
// assistant message (possibly announcing tool calls) or a tool result.
type TrajectoryEntry struct {
	Time      time.Time            `json:"time"`
	Turn      int                  `json:"turn"`
	Role      string               `json:"role"`
	Content   string               `json:"content,omitempty"`
	ToolCalls []TrajectoryToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and Tool are set on tool-result entries.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Tool       string `json:"tool,omitempty"`
}

// TrajectoryToolCall mirrors one function call the assistant requested.
// Arguments is the raw argument string as the model produced it, which
// is not guaranteed to be valid JSON.
type TrajectoryToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (l *Loop) recordAssistant(turn int, msg openai.ChatCompletionMessage) {
	if l.trajectoryPath == "" {
		return
	}
	entry := TrajectoryEntry{
		Time:    time.Now(),
		Turn:    turn,
		Role:    "assistant",
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		entry.ToolCalls = append(entry.ToolCalls, TrajectoryToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	l.record(entry)
}

func (l *Loop) recordToolResult(turn int, call openai.ToolCall, result string) {
	if l.trajectoryPath == "" {
		return
	}
	l.record(TrajectoryEntry{
		Time:       time.Now(),
		Turn:       turn,
		Role:       "tool",
		Content:    result,
		ToolCallID: call.ID,
		Tool:       call.Function.Name,
	})
}

// record appends one entry. Trajectory writing is best-effort; a broken
// trajectory file must not abort the run it describes.
func (l *Loop) record(entry TrajectoryEntry) {
	if err := auditlog.Append(l.trajectoryPath, entry); err != nil {
		logrus.WithError(err).Warn("Failed to append trajectory entry")
	}
}
