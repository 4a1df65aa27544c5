// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/mcp/toolset"
	"github.com/sweagent-dev/sweagent/pkg/version"
)

func main() {
	if err := newApp().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "swectl-mcp",
		Short:         "Filesystem MCP server for the SWE-agent",
		Version:       strings.TrimPrefix(version.Version, "v"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newMcpInfoCommand(),
		newMcpServeCommand(),
		newMcpGenDocCommand(),
	)
	return cmd
}

func newServer() *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "sweagent",
		Title:   "SWE-agent filesystem access, rooted at one allowed directory",
		Version: version.Version,
	}
	serverOpts := &mcp.ServerOptions{
		Instructions: `This MCP server provides tools for reading, writing, and searching files
under a single allowed root directory, typically the testbed checkout the
agent is working on.

Every path argument is interpreted relative to that root. Absolute paths
and ".." components cannot escape it.
`,
	}
	return mcp.NewServer(impl, serverOpts)
}

func newMcpInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show information about the MCP server",
		Args:  cobra.NoArgs,
		RunE:  mcpInfoAction,
	}
	return cmd
}

func mcpInfoAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	info, err := inspectInfo(ctx)
	if err != nil {
		return err
	}
	j, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(j))
	return err
}

// inspectInfo lists the tools by serving them to an in-memory client, so
// the reported schemas are exactly what a connected agent would see.
func inspectInfo(ctx context.Context) (*Info, error) {
	ts, err := toolset.New(".")
	if err != nil {
		return nil, err
	}
	server := newServer()
	if err = ts.RegisterServer(server); err != nil {
		return nil, err
	}
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		return nil, err
	}
	toolsResult, err := clientSession.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	if err = clientSession.Close(); err != nil {
		return nil, err
	}
	if err = serverSession.Wait(); err != nil {
		return nil, err
	}
	info := &Info{
		Tools: toolsResult.Tools,
	}
	return info, nil
}

type Info struct {
	Tools []*mcp.Tool `json:"tools"`
}

func newMcpServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [DIR]",
		Short: "Serve MCP over stdio, allowing access to DIR (default: current directory)",
		Long: `Serve MCP over stdio, allowing access to DIR (default: current directory).

Expected to be executed via an AI agent, not by a human`,
		Args: cobra.MaximumNArgs(1),
		RunE: mcpServeAction,
	}
	return cmd
}

func mcpServeAction(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	// stdout carries the protocol; logs go to stderr as JSON lines so the
	// parent process can forward them into its own logger.
	logrus.SetFormatter(new(logrus.JSONFormatter))
	ts, err := toolset.New(dir)
	if err != nil {
		return err
	}
	server := newServer()
	if err = ts.RegisterServer(server); err != nil {
		return err
	}
	logrus.Infof("Serving MCP over stdio, allowed root %q", ts.Root())
	transport := &mcp.StdioTransport{}
	return server.Run(ctx, transport)
}

func newMcpGenDocCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "generate-doc DIR",
		Short:  "Generate documentation pages",
		Args:   cobra.MinimumNArgs(1),
		RunE:   mcpGenDocAction,
		Hidden: true,
	}
	return cmd
}

func mcpGenDocAction(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fName := filepath.Join(dir, "mcp.md")
	f, err := os.Create(fName)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprint(f, `# MCP tools

swectl-mcp serves the filesystem tools the SWE-agent uses for file I/O:
https://pkg.go.dev/github.com/sweagent-dev/sweagent/pkg/mcp/msi

All tools operate relative to a single allowed root directory, given to
`+"`swectl-mcp serve`"+` as its argument. Paths cannot escape the root.

`)
	info, err := inspectInfo(ctx)
	if err != nil {
		return err
	}
	for _, tool := range info.Tools {
		fmt.Fprintf(f, "## `%s`\n\n", tool.Name)
		if tool.Title != "" {
			fmt.Fprintf(f, "### Title\n\n%s\n\n", tool.Title)
		}
		if tool.Description != "" {
			fmt.Fprintf(f, "### Description\n\n%s\n\n", tool.Description)
		}
		if tool.InputSchema != nil {
			fmt.Fprint(f, "### Input Schema\n\n")
			schema, err := json.MarshalIndent(tool.InputSchema, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintf(f, "```json\n%s\n```\n\n", string(schema))
		}
		if tool.OutputSchema != nil {
			fmt.Fprint(f, "### Output Schema\n\n")
			schema, err := json.MarshalIndent(tool.OutputSchema, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintf(f, "```json\n%s\n```\n\n", string(schema))
		}
	}
	return f.Close()
}
