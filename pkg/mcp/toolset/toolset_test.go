// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package toolset

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gotest.tools/v3/assert"

	"github.com/sweagent-dev/sweagent/pkg/mcp/msi"
	"github.com/sweagent-dev/sweagent/pkg/ptr"
)

func newTestToolSet(t *testing.T) (*ToolSet, string) {
	t.Helper()
	root := t.TempDir()
	ts, err := New(root)
	assert.NilError(t, err)
	return ts, root
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		assert.NilError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err, "allowed root directory is required")

	_, err = New(filepath.Join(t.TempDir(), "missing"))
	assert.Assert(t, err != nil)

	file := filepath.Join(t.TempDir(), "f")
	assert.NilError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(file)
	assert.ErrorContains(t, err, "is not a directory")

	ts, root := newTestToolSet(t)
	assert.Assert(t, filepath.IsAbs(ts.Root()))
	assert.Equal(t, ts.Root(), root)
}

func TestResolveStaysInsideRoot(t *testing.T) {
	ts, root := newTestToolSet(t)

	tests := []struct {
		path string
		want string
	}{
		{"sub/file.txt", filepath.Join(root, "sub", "file.txt")},
		{"/etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"../../../../etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"a/../b", filepath.Join(root, "b")},
		{".", root},
	}
	for _, tt := range tests {
		got, err := ts.Resolve(tt.path)
		assert.NilError(t, err)
		assert.Equal(t, got, tt.want)
		assert.Assert(t, got == root || strings.HasPrefix(got, root+string(os.PathSeparator)))
	}

	_, err := ts.Resolve("")
	assert.Error(t, err, "path is empty")
}

func TestResolveClampsSymlinkEscape(t *testing.T) {
	ts, root := newTestToolSet(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlink creation not supported: %v", err)
	}

	got, err := ts.Resolve("link/secret")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(got, root+string(os.PathSeparator)), "resolved to %q", got)
}

func TestReadWriteRoundTrip(t *testing.T) {
	ts, root := newTestToolSet(t)
	ctx := context.Background()

	_, _, err := ts.WriteFile(ctx, nil, msi.WriteFileParams{
		Path:    "notes/todo.txt",
		Content: "fix the parser\n",
	})
	assert.NilError(t, err)

	b, err := os.ReadFile(filepath.Join(root, "notes", "todo.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(b), "fix the parser\n")

	_, res, err := ts.ReadFile(ctx, nil, msi.ReadFileParams{Path: "notes/todo.txt"})
	assert.NilError(t, err)
	assert.Equal(t, res.Content, "fix the parser\n")
}

func TestWriteFileCannotEscape(t *testing.T) {
	ts, root := newTestToolSet(t)

	_, _, err := ts.WriteFile(context.Background(), nil, msi.WriteFileParams{
		Path:    "../escape.txt",
		Content: "broke out",
	})
	assert.NilError(t, err)

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.txt"))
	assert.Assert(t, os.IsNotExist(err))
	b, err := os.ReadFile(filepath.Join(root, "escape.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(b), "broke out")
}

func TestListDirectory(t *testing.T) {
	ts, root := newTestToolSet(t)
	writeTree(t, root, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	_, res, err := ts.ListDirectory(context.Background(), nil, msi.ListDirectoryParams{Path: "."})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Entries), 2)
	assert.Equal(t, res.Entries[0].Name, "a.txt")
	assert.Equal(t, *res.Entries[0].IsDir, false)
	assert.Equal(t, *res.Entries[0].Size, int64(1))
	assert.Equal(t, res.Entries[1].Name, "sub")
	assert.Equal(t, *res.Entries[1].IsDir, true)

	_, _, err = ts.ListDirectory(context.Background(), nil, msi.ListDirectoryParams{})
	assert.Error(t, err, "path is empty")
}

func TestCreateDirectory(t *testing.T) {
	ts, root := newTestToolSet(t)

	_, _, err := ts.CreateDirectory(context.Background(), nil, msi.CreateDirectoryParams{Path: "x/y/z"})
	assert.NilError(t, err)

	st, err := os.Stat(filepath.Join(root, "x", "y", "z"))
	assert.NilError(t, err)
	assert.Assert(t, st.IsDir())

	// Creating it again is not an error.
	_, _, err = ts.CreateDirectory(context.Background(), nil, msi.CreateDirectoryParams{Path: "x/y/z"})
	assert.NilError(t, err)
}

func TestGlobSortsNewestFirst(t *testing.T) {
	ts, root := newTestToolSet(t)
	writeTree(t, root, map[string]string{
		"old.py":     "old",
		"new.py":     "new",
		"readme.md":  "md",
		"sub/mid.py": "mid",
	})
	now := time.Now()
	assert.NilError(t, os.Chtimes(filepath.Join(root, "old.py"), now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	assert.NilError(t, os.Chtimes(filepath.Join(root, "new.py"), now, now))

	_, res, err := ts.Glob(context.Background(), nil, msi.GlobParams{Pattern: "*.py"})
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Matches, []string{"new.py", "old.py"})

	_, res, err = ts.Glob(context.Background(), nil, msi.GlobParams{Pattern: "*.py", Path: ptr.Of("sub")})
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Matches, []string{filepath.Join("sub", "mid.py")})

	_, _, err = ts.Glob(context.Background(), nil, msi.GlobParams{})
	assert.Error(t, err, "pattern is empty")
}

func TestGlobCannotEscape(t *testing.T) {
	ts, root := newTestToolSet(t)
	assert.NilError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("s"), 0o644))

	_, res, err := ts.Glob(context.Background(), nil, msi.GlobParams{Pattern: "../*.txt"})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Matches), 0)
}

func TestSearchFileContent(t *testing.T) {
	ts, root := newTestToolSet(t)
	writeTree(t, root, map[string]string{
		"code.py":      "import os\ndef main():\n    pass\n",
		"sub/other.py": "def helper():\n    pass\n",
		"notes.txt":    "def is also a word here\n",
		".git/config":  "def inside git dir\n",
	})
	assert.NilError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte("def \x00 binary"), 0o644))

	ctx := context.Background()
	_, res, err := ts.SearchFileContent(ctx, nil, msi.SearchFileContentParams{Pattern: `def\s+\w+`})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Matches), 3)

	_, res, err = ts.SearchFileContent(ctx, nil, msi.SearchFileContentParams{
		Pattern: `def\s+\w+`,
		Include: ptr.Of("*.py"),
	})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Matches), 2)
	paths := []string{res.Matches[0].Path, res.Matches[1].Path}
	slices.Sort(paths)
	assert.DeepEqual(t, paths, []string{"code.py", filepath.Join("sub", "other.py")})
	for _, m := range res.Matches {
		if m.Path == "code.py" {
			assert.Equal(t, m.Line, 2)
			assert.Equal(t, m.Text, "def main():")
		}
	}

	_, res, err = ts.SearchFileContent(ctx, nil, msi.SearchFileContentParams{
		Pattern: "helper",
		Path:    ptr.Of("sub"),
	})
	assert.NilError(t, err)
	assert.Equal(t, len(res.Matches), 1)
	assert.Equal(t, res.Matches[0].Path, filepath.Join("sub", "other.py"))

	_, _, err = ts.SearchFileContent(ctx, nil, msi.SearchFileContentParams{Pattern: "("})
	assert.Assert(t, err != nil)
	_, _, err = ts.SearchFileContent(ctx, nil, msi.SearchFileContentParams{Pattern: "x", Include: ptr.Of("[")})
	assert.Assert(t, err != nil)
}

func TestServerRoundTrip(t *testing.T) {
	ts, root := newTestToolSet(t)
	writeTree(t, root, map[string]string{"hello.txt": "hi"})
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "sweagent", Version: "test"}, nil)
	assert.NilError(t, ts.RegisterServer(server))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	assert.NilError(t, err)
	client := mcp.NewClient(&mcp.Implementation{Name: "client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	assert.NilError(t, err)

	toolsResult, err := clientSession.ListTools(ctx, &mcp.ListToolsParams{})
	assert.NilError(t, err)
	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	assert.DeepEqual(t, names, []string{
		"create_directory", "glob", "list_directory",
		"read_file", "search_file_content", "write_file",
	})

	callResult, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "read_file",
		Arguments: map[string]any{"path": "hello.txt"},
	})
	assert.NilError(t, err)
	assert.Equal(t, callResult.IsError, false)
	content, ok := callResult.StructuredContent.(map[string]any)
	assert.Assert(t, ok, "unexpected structured content %T", callResult.StructuredContent)
	assert.Equal(t, content["content"], "hi")

	assert.NilError(t, clientSession.Close())
	_ = serverSession.Wait()
}
