package coretools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/harun/gatekit/pkg/invoke"
)

const defaultReadLimit = 200000

// ReadTool reads a file from the workspace.
func ReadTool(opts Options) *invoke.Descriptor {
	return &invoke.Descriptor{
		Name:        "Read",
		Description: "Read a file from the workspace.",
		Kind:        invoke.KindReadOnly,
		Parameters: []invoke.Parameter{
			{Name: "file_path", Type: "string", Description: "File path", Required: true},
			{Name: "max_bytes", Type: "number", Description: "Maximum bytes to read", Required: false, Default: defaultReadLimit},
		},
		Capability: readCapability{},
		Executor: func(ctx context.Context, params map[string]interface{}, _ *invoke.ExecContext) (invoke.Result, error) {
			if ctx.Err() != nil {
				return invoke.Result{}, invoke.ErrCancelled
			}

			target, err := resolveFileParam(opts, params)
			if err != nil {
				return invoke.Result{}, err
			}

			data, err := os.ReadFile(target)
			if err != nil {
				return invoke.Result{}, err
			}

			limit := intParam(params["max_bytes"], defaultReadLimit)
			truncated := false
			if len(data) > limit {
				data = data[:limit]
				truncated = true
			}

			return invoke.Result{
				Success:    true,
				LLMContent: string(data),
				Metadata: map[string]interface{}{
					"bytes":     len(data),
					"truncated": truncated,
				},
			}, nil
		},
	}
}

// WriteTool creates or overwrites a file in the workspace.
func WriteTool(opts Options) *invoke.Descriptor {
	return &invoke.Descriptor{
		Name:        "Write",
		Description: "Create or overwrite a file in the workspace.",
		Kind:        invoke.KindWrite,
		Parameters: []invoke.Parameter{
			{Name: "file_path", Type: "string", Description: "File path", Required: true},
			{Name: "content", Type: "string", Description: "File content", Required: true},
		},
		Capability: writeCapability{},
		Executor: func(ctx context.Context, params map[string]interface{}, _ *invoke.ExecContext) (invoke.Result, error) {
			if ctx.Err() != nil {
				return invoke.Result{}, invoke.ErrCancelled
			}

			target, err := resolveFileParam(opts, params)
			if err != nil {
				return invoke.Result{}, err
			}
			content, _ := params["content"].(string)

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return invoke.Result{}, fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.WriteFile(target, []byte(content), 0644); err != nil {
				return invoke.Result{}, err
			}

			return invoke.Result{
				Success:        true,
				LLMContent:     fmt.Sprintf("Wrote %d bytes to %s", len(content), target),
				DisplayContent: fmt.Sprintf("Wrote %d bytes to %s", len(content), target),
				Metadata: map[string]interface{}{
					"bytes": len(content),
				},
			}, nil
		},
	}
}

// EditTool replaces an exact string in a file, surfacing a unified diff as
// display content.
func EditTool(opts Options) *invoke.Descriptor {
	return &invoke.Descriptor{
		Name:        "Edit",
		Description: "Replace an exact string in a workspace file.",
		Kind:        invoke.KindWrite,
		Parameters: []invoke.Parameter{
			{Name: "file_path", Type: "string", Description: "File path", Required: true},
			{Name: "old_string", Type: "string", Description: "Exact text to replace", Required: true},
			{Name: "new_string", Type: "string", Description: "Replacement text", Required: true},
			{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence", Required: false, Default: false},
		},
		Capability: editCapability{},
		Executor: func(ctx context.Context, params map[string]interface{}, _ *invoke.ExecContext) (invoke.Result, error) {
			if ctx.Err() != nil {
				return invoke.Result{}, invoke.ErrCancelled
			}

			target, err := resolveFileParam(opts, params)
			if err != nil {
				return invoke.Result{}, err
			}
			oldString, _ := params["old_string"].(string)
			newString, _ := params["new_string"].(string)
			replaceAll, _ := params["replace_all"].(bool)

			if oldString == "" {
				return invoke.Result{}, fmt.Errorf("old_string is required")
			}

			data, err := os.ReadFile(target)
			if err != nil {
				return invoke.Result{}, err
			}
			before := string(data)

			count := strings.Count(before, oldString)
			if count == 0 {
				return invoke.Result{}, fmt.Errorf("old_string not found in %s", target)
			}
			if count > 1 && !replaceAll {
				return invoke.Result{}, fmt.Errorf("old_string occurs %d times in %s; pass replace_all to replace every occurrence", count, target)
			}

			replacements := 1
			if replaceAll {
				replacements = -1
			}
			after := strings.Replace(before, oldString, newString, replacements)

			if err := os.WriteFile(target, []byte(after), 0644); err != nil {
				return invoke.Result{}, err
			}

			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(before),
				B:        difflib.SplitLines(after),
				FromFile: target,
				ToFile:   target,
				Context:  3,
			})
			if err != nil {
				diff = ""
			}

			edits := count
			if !replaceAll {
				edits = 1
			}
			return invoke.Result{
				Success:        true,
				LLMContent:     fmt.Sprintf("Applied %d edit(s) to %s", edits, target),
				DisplayContent: diff,
				Metadata: map[string]interface{}{
					"edits": edits,
				},
			}, nil
		},
	}
}

func resolveFileParam(opts Options, params map[string]interface{}) (string, error) {
	path, _ := params["file_path"].(string)
	return resolvePath(opts.WorkspaceRoot, path)
}

// fileCapability serializes the file_path parameter into the signature
// content, e.g. Write(file_path:/tmp/x).
type fileCapability struct{}

// ExtractSignatureContent implements policy.SignatureExtractor.
func (fileCapability) ExtractSignatureContent(params map[string]interface{}) (string, error) {
	path, _ := params["file_path"].(string)
	if path == "" {
		return "", nil
	}
	return "file_path:" + path, nil
}

type readCapability struct{ fileCapability }

// AbstractRule offers the whole-tool rule: reads are uniformly safe to
// remember.
func (readCapability) AbstractRule(map[string]interface{}) (string, error) {
	return "Read", nil
}

type writeCapability struct{ fileCapability }

// AbstractRule opts out: blanket write rules are too dangerous to offer
// from a single confirmation.
func (writeCapability) AbstractRule(map[string]interface{}) (string, error) {
	return "", nil
}

type editCapability struct{ fileCapability }

// AbstractRule scopes the remembered rule to the edited file's directory.
func (editCapability) AbstractRule(params map[string]interface{}) (string, error) {
	path, _ := params["file_path"].(string)
	if path == "" {
		return "", nil
	}
	return fmt.Sprintf("Edit(file_path:%s/*)", filepath.Dir(path)), nil
}
