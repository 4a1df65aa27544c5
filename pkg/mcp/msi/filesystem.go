// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package msi

import (
	"io/fs"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var ListDirectory = &mcp.Tool{
	Name:        "list_directory",
	Description: `Lists the names of files and subdirectories directly within a specified directory path.`,
}

type ListDirectoryParams struct {
	Path string `json:"path" jsonschema:"The path of the directory to list, relative to the allowed root."`
}

// ListDirectoryResultEntry is similar to [io/fs.FileInfo].
type ListDirectoryResultEntry struct {
	Name    string       `json:"name" jsonschema:"base name of the file"`
	Size    *int64       `json:"size,omitempty" jsonschema:"length in bytes for regular files; system-dependent for others"`
	Mode    *fs.FileMode `json:"mode,omitempty" jsonschema:"file mode bits"`
	ModTime *time.Time   `json:"time,omitempty" jsonschema:"modification time"`
	IsDir   *bool        `json:"is_dir,omitempty" jsonschema:"true for a directory"`
}

type ListDirectoryResult struct {
	Entries []ListDirectoryResultEntry `json:"entries" jsonschema:"The directory content entries."`
}

var ReadFile = &mcp.Tool{
	Name:        "read_file",
	Description: `Reads and returns the content of a specified file.`,
}

type ReadFileParams struct {
	Path string `json:"path" jsonschema:"The path of the file to read, relative to the allowed root."`
}

type ReadFileResult struct {
	Content string `json:"content" jsonschema:"The content of the file."`
}

var WriteFile = &mcp.Tool{
	Name:        "write_file",
	Description: `Writes content to a specified file. If the file exists, it will be overwritten. If the file doesn't exist, it (and any necessary parent directories) will be created.`,
}

type WriteFileParams struct {
	Path    string `json:"path" jsonschema:"The path of the file to write to, relative to the allowed root."`
	Content string `json:"content" jsonschema:"The content to write into the file."`
}

type WriteFileResult struct {
	// Empty for now
}

var CreateDirectory = &mcp.Tool{
	Name:        "create_directory",
	Description: `Creates a directory, including any necessary parent directories. Succeeds when the directory already exists.`,
}

type CreateDirectoryParams struct {
	Path string `json:"path" jsonschema:"The path of the directory to create, relative to the allowed root."`
}

type CreateDirectoryResult struct {
	// Empty for now
}

var Glob = &mcp.Tool{
	Name:        "glob",
	Description: `Finds files matching a specific glob pattern (e.g., 'src/*.py', '*.md'), sorted by modification time (newest first).`,
}

type GlobParams struct {
	Pattern string  `json:"pattern" jsonschema:"The glob pattern to match against (e.g., '*.py', 'src/*.c')."`
	Path    *string `json:"path,omitempty" jsonschema:"The path of the directory to search within, relative to the allowed root. If omitted, searches the root."`
}

type GlobResult struct {
	Matches []string `json:"matches" jsonschema:"The matching file paths, relative to the allowed root, newest first."`
}

var SearchFileContent = &mcp.Tool{
	Name:        "search_file_content",
	Description: `Searches for a regular expression pattern within the content of files under a specified directory. Skips binary files and .git directories. Returns at most 1000 matches.`,
}

type SearchFileContentParams struct {
	Pattern string  `json:"pattern" jsonschema:"The regular expression (regex) to search for (e.g., 'def\\s+my_function')."`
	Path    *string `json:"path,omitempty" jsonschema:"The path of the directory to search within, relative to the allowed root. If omitted, searches the root."`
	Include *string `json:"include,omitempty" jsonschema:"A glob pattern to filter which files are searched (e.g., '*.py'). Patterns without a path separator match base names; others match paths relative to the searched directory."`
}

type SearchMatch struct {
	Path string `json:"path" jsonschema:"path of the matching file, relative to the allowed root"`
	Line int    `json:"line" jsonschema:"1-based line number of the match"`
	Text string `json:"text" jsonschema:"the matching line"`
}

type SearchFileContentResult struct {
	Matches []SearchMatch `json:"matches" jsonschema:"The matching lines."`
}
