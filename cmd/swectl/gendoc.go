// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"

	"github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newGenManCommand() *cobra.Command {
	genmanCommand := &cobra.Command{
		Use:    "generate-man DIR",
		Short:  "Generate manual pages",
		Args:   WrapArgsError(cobra.MinimumNArgs(1)),
		RunE:   genmanAction,
		Hidden: true,
	}
	return genmanCommand
}

func genmanAction(cmd *cobra.Command, args []string) error {
	dir := args[0]
	logrus.Infof("Generating man %q", dir)
	// swectl-mcp(1) is a separate binary, so its page is written by hand.
	filePath := filepath.Join(dir, "swectl-mcp.1")
	md := "SWECTL-MCP 1\n============" + `
# NAME
swectl-mcp - filesystem access server for swectl agents
# SYNOPSIS
**swectl-mcp serve** [_DIR_]
# DESCRIPTION
swectl-mcp serves file tools over the Model Context Protocol on stdio.
Every path a client sends resolves inside the allowed root directory
_DIR_ (default "."); paths cannot escape the root.
# SEE ALSO
**swectl**(1)
`
	out := md2man.Render([]byte(md))
	if err := os.WriteFile(filePath, out, 0o644); err != nil {
		return err
	}
	// swectl(1) and its subcommands
	header := &doc.GenManHeader{
		Title:   "SWECTL",
		Section: "1",
	}
	return doc.GenManTree(cmd.Root(), header, dir)
}
