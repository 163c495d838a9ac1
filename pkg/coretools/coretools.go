// Package coretools declares the baseline filesystem and shell tools, with
// the signature, rule-abstraction, and affected-path capabilities the
// policy engine matches against.
package coretools

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/harun/gatekit/pkg/invoke"
)

// Options configures core tool construction.
type Options struct {
	// WorkspaceRoot confines file and shell tools. Empty means unconfined
	// absolute-path access; embedders should set it.
	WorkspaceRoot string
}

// Descriptors returns the core tool set: Bash, Read, Write, Edit.
func Descriptors(opts Options) []*invoke.Descriptor {
	return []*invoke.Descriptor{
		BashTool(opts),
		ReadTool(opts),
		WriteTool(opts),
		EditTool(opts),
	}
}

// resolvePath resolves a possibly-relative path against the workspace root
// and rejects escapes.
func resolvePath(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if root == "" {
		if !filepath.IsAbs(path) {
			return "", fmt.Errorf("relative path %q requires a workspace root", path)
		}
		return filepath.Clean(path), nil
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return resolved, nil
}

// intParam reads a numeric parameter, tolerating the float64 that JSON
// decoding produces.
func intParam(v interface{}, fallback int) int {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n)
		}
	case int:
		if n > 0 {
			return n
		}
	}
	return fallback
}

// durationSeconds reads a numeric seconds parameter, tolerating the float64
// that JSON decoding produces.
func durationSeconds(v interface{}, fallback time.Duration) time.Duration {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return time.Duration(n * float64(time.Second))
		}
	case int:
		if n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
