// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package agentloop

import (
	openai "github.com/sashabaranov/go-openai"
)

// NewClient builds a client for an OpenAI-compatible ChatCompletions
// endpoint. apiBase is used verbatim when non-empty, so self-hosted
// endpoints keep whatever path prefix they were configured with
// (typically ending in /v1). An empty apiKey is accepted for local
// servers that do not authenticate.
func NewClient(apiBase, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	return openai.NewClientWithConfig(cfg)
}
