package coretools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/gatekit/pkg/invoke"
	"github.com/harun/gatekit/pkg/policy"
)

// TestReadTool_Execute tests reading a workspace file
func TestReadTool_Execute(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world"), 0644))

	inv, err := ReadTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path": "hello.txt",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, "hello world", result.LLMContent)
	assert.Equal(t, false, result.Metadata["truncated"])
}

// TestReadTool_Execute_Truncation tests the max_bytes limit
func TestReadTool_Execute_Truncation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte("0123456789"), 0644))

	inv, err := ReadTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path": "big.txt",
		"max_bytes": 4,
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, "0123", result.LLMContent)
	assert.Equal(t, true, result.Metadata["truncated"])
}

// TestReadTool_Execute_MissingFile tests failure surfacing
func TestReadTool_Execute_MissingFile(t *testing.T) {
	inv, err := ReadTool(Options{WorkspaceRoot: t.TempDir()}).Build(map[string]interface{}{
		"file_path": "nope.txt",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	assert.False(t, result.Success)
	assert.False(t, result.Cancelled)
	assert.NotEmpty(t, result.Error)
}

// TestWriteTool_Execute tests writing through directories
func TestWriteTool_Execute(t *testing.T) {
	root := t.TempDir()

	inv, err := WriteTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path": "sub/dir/out.txt",
		"content":   "payload",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	require.True(t, result.Success)
	data, err := os.ReadFile(filepath.Join(root, "sub", "dir", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

// TestWriteTool_Execute_EscapeBlocked tests workspace confinement
func TestWriteTool_Execute_EscapeBlocked(t *testing.T) {
	inv, err := WriteTool(Options{WorkspaceRoot: t.TempDir()}).Build(map[string]interface{}{
		"file_path": "../escape.txt",
		"content":   "x",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "escapes the workspace")
}

// TestEditTool_Execute tests single replacement with diff display
func TestEditTool_Execute(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("alpha\nbeta\ngamma\n"), 0644))

	inv, err := EditTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path":  "main.go",
		"old_string": "beta",
		"new_string": "delta",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)

	require.True(t, result.Success)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "alpha\ndelta\ngamma\n", string(data))
	assert.Contains(t, result.DisplayContent, "-beta")
	assert.Contains(t, result.DisplayContent, "+delta")
}

// TestEditTool_Execute_AmbiguousWithoutReplaceAll tests the multi-occurrence guard
func TestEditTool_Execute_AmbiguousWithoutReplaceAll(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(target, []byte("x x"), 0644))

	inv, err := EditTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path":  "f.txt",
		"old_string": "x",
		"new_string": "y",
	})
	require.NoError(t, err)

	result := inv.Execute(context.Background(), invoke.ExecContext{}, nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "replace_all")

	inv, err = EditTool(Options{WorkspaceRoot: root}).Build(map[string]interface{}{
		"file_path":   "f.txt",
		"old_string":  "x",
		"new_string":  "y",
		"replace_all": true,
	})
	require.NoError(t, err)

	result = inv.Execute(context.Background(), invoke.ExecContext{}, nil)
	require.True(t, result.Success)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "y y", string(data))
}

// TestFileCapabilities_Signatures tests the file_path signature wire format
func TestFileCapabilities_Signatures(t *testing.T) {
	params := map[string]interface{}{"file_path": "/tmp/x"}

	for _, d := range []*invoke.Descriptor{
		ReadTool(Options{}), WriteTool(Options{}), EditTool(Options{}),
	} {
		sig := policy.BuildSignature(d.Name, params, d.Capability)
		assert.Equal(t, d.Name+"(file_path:/tmp/x)", sig)
	}

	// Missing path degrades to the bare name.
	sig := policy.BuildSignature("Read", map[string]interface{}{}, ReadTool(Options{}).Capability)
	assert.Equal(t, "Read", sig)
}

// TestFileCapabilities_AbstractRules tests per-tool auto-rule behavior
func TestFileCapabilities_AbstractRules(t *testing.T) {
	params := map[string]interface{}{"file_path": "/home/u/project/notes.md"}

	rule, ok := policy.AbstractRule("Read", params, ReadTool(Options{}).Capability)
	assert.True(t, ok)
	assert.Equal(t, "Read", rule)

	// Write opts out of auto-rule generation.
	_, ok = policy.AbstractRule("Write", params, WriteTool(Options{}).Capability)
	assert.False(t, ok)

	rule, ok = policy.AbstractRule("Edit", params, EditTool(Options{}).Capability)
	assert.True(t, ok)
	assert.Equal(t, "Edit(file_path:/home/u/project/*)", rule)
}
