// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package msi declares the MCP tools of the filesystem access server.
//
// The declarations are the wire contract between `swectl-mcp serve` and
// whatever MCP client connects to it: tool names, prompt texts, and the
// typed parameter/result shapes the schemas are generated from. The
// handlers live in the toolset package.
//
// All paths accepted by these tools resolve inside the server's allowed
// root directory. Absolute paths and `..` sequences are reinterpreted
// relative to that root rather than rejected, so a confused caller still
// cannot reach outside the sandbox.
package msi
