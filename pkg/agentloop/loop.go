// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentloop drives a tool-calling conversation against an
// OpenAI-compatible ChatCompletions endpoint until the model answers
// without requesting a tool, or the turn budget runs out.
package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// DefaultMaxTurns bounds a run when Options.MaxTurns is zero.
const DefaultMaxTurns = 10

// Options configures a Loop.
type Options struct {
	Client *openai.Client
	Model  string

	// SystemPrompt seeds the conversation when non-empty.
	SystemPrompt string

	// Temperature and MaxTokens are forwarded with every request when
	// non-nil.
	Temperature *float64
	MaxTokens   *int

	// MaxTurns caps the number of ChatCompletions requests in one run.
	// Zero selects DefaultMaxTurns.
	MaxTurns int

	Tools []Tool

	// TrajectoryPath, when non-empty, receives one JSON line per
	// assistant message and per tool result.
	TrajectoryPath string
}

// Loop holds everything needed to run conversations. It is stateless
// across runs; each Run starts a fresh conversation.
type Loop struct {
	client         *openai.Client
	model          string
	systemPrompt   string
	temperature    *float64
	maxTokens      *int
	maxTurns       int
	toolDefs       []openai.Tool
	toolsByName    map[string]Tool
	trajectoryPath string
}

// New validates opts and builds a Loop.
func New(opts Options) (*Loop, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model name is required")
	}
	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns < 0 {
		return nil, fmt.Errorf("max turns must be positive, got %d", maxTurns)
	}
	l := &Loop{
		client:         opts.Client,
		model:          opts.Model,
		systemPrompt:   opts.SystemPrompt,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
		maxTurns:       maxTurns,
		toolsByName:    make(map[string]Tool, len(opts.Tools)),
		trajectoryPath: opts.TrajectoryPath,
	}
	for _, tool := range opts.Tools {
		if tool.Name == "" {
			return nil, errors.New("tool name is required")
		}
		if tool.Invoke == nil {
			return nil, fmt.Errorf("tool %q has no Invoke function", tool.Name)
		}
		if _, ok := l.toolsByName[tool.Name]; ok {
			return nil, fmt.Errorf("duplicate tool name %q", tool.Name)
		}
		l.toolsByName[tool.Name] = tool
		l.toolDefs = append(l.toolDefs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Schema,
			},
		})
	}
	return l, nil
}

// MaxTurnsError reports a run that was still issuing tool calls when the
// turn budget ran out. LastContent preserves the final assistant message.
type MaxTurnsError struct {
	Turns       int
	LastContent string
}

func (e *MaxTurnsError) Error() string {
	return fmt.Sprintf("run did not complete within %d turns", e.Turns)
}

// Run seeds a conversation with input and iterates requests until the
// model replies without tool calls, returning that reply's content.
// Tool failures are fed back to the model as results, not surfaced as
// errors; only transport failures and the turn budget abort a run.
func (l *Loop) Run(ctx context.Context, input string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if l.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: l.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	var lastContent string
	for turn := 1; turn <= l.maxTurns; turn++ {
		req := openai.ChatCompletionRequest{
			Model:    l.model,
			Messages: messages,
			Tools:    l.toolDefs,
		}
		if l.temperature != nil {
			req.Temperature = float32(*l.temperature)
		}
		if l.maxTokens != nil {
			req.MaxTokens = *l.maxTokens
		}
		resp, err := l.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion request failed on turn %d: %w", turn, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices on turn %d", turn)
		}
		msg := resp.Choices[0].Message
		lastContent = msg.Content
		messages = append(messages, msg)
		l.recordAssistant(turn, msg)

		if len(msg.ToolCalls) == 0 {
			logrus.Debugf("Run finished after %d turn(s)", turn)
			return msg.Content, nil
		}
		for _, call := range msg.ToolCalls {
			result := l.invoke(ctx, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
			l.recordToolResult(turn, call, result)
		}
	}
	return "", &MaxTurnsError{Turns: l.maxTurns, LastContent: lastContent}
}

// invoke dispatches one tool call. Failures come back as result text so
// the model can react to them.
func (l *Loop) invoke(ctx context.Context, call openai.ToolCall) string {
	name := call.Function.Name
	tool, ok := l.toolsByName[name]
	if !ok {
		logrus.Warnf("Model requested unknown tool %q", name)
		return fmt.Sprintf("error: unknown tool %q", name)
	}
	logrus.WithFields(logrus.Fields{
		"tool": name,
		"id":   call.ID,
	}).Debug("Invoking tool")
	out, err := tool.Invoke(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}
