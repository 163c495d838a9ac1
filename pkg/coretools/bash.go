package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/syntax"

	"github.com/harun/gatekit/pkg/invoke"
)

// BashTool executes a shell command in the workspace. Commands are parsed
// before execution so malformed input fails without spawning a shell.
func BashTool(opts Options) *invoke.Descriptor {
	return &invoke.Descriptor{
		Name:        "Bash",
		Description: "Execute a shell command in the workspace.",
		Kind:        invoke.KindExecute,
		Parameters: []invoke.Parameter{
			{Name: "command", Type: "string", Description: "Command to execute", Required: true},
			{Name: "cwd", Type: "string", Description: "Working directory (relative to workspace)", Required: false},
			{Name: "timeout", Type: "number", Description: "Timeout in seconds", Required: false},
		},
		Capability: bashCapability{},
		Executor: func(ctx context.Context, params map[string]interface{}, execCtx *invoke.ExecContext) (invoke.Result, error) {
			command, _ := params["command"].(string)
			command = strings.TrimSpace(command)
			if command == "" {
				return invoke.Result{}, fmt.Errorf("command is required")
			}
			if _, err := parseShell(command); err != nil {
				return invoke.Result{}, fmt.Errorf("command does not parse: %w", err)
			}

			cwd := opts.WorkspaceRoot
			if rawCwd, ok := params["cwd"].(string); ok && rawCwd != "" {
				resolved, err := resolvePath(opts.WorkspaceRoot, rawCwd)
				if err != nil {
					return invoke.Result{}, err
				}
				cwd = resolved
			}

			timeout := durationSeconds(params["timeout"], 120*time.Second)
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "bash", "-c", command)
			cmd.Dir = cwd
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			runErr := cmd.Run()

			if ctx.Err() != nil {
				return invoke.Result{}, invoke.ErrCancelled
			}
			if runCtx.Err() == context.DeadlineExceeded {
				return invoke.Result{}, fmt.Errorf("command timed out after %v", timeout)
			}

			execCtx.Emit(stdout.String())
			execCtx.Emit(stderr.String())

			exitCode := 0
			if runErr != nil {
				var exitErr *exec.ExitError
				if errors.As(runErr, &exitErr) {
					exitCode = exitErr.ExitCode()
				} else {
					return invoke.Result{}, runErr
				}
			}

			content := stdout.String()
			if stderr.Len() > 0 {
				content += stderr.String()
			}

			result := invoke.Result{
				Success:    exitCode == 0,
				LLMContent: content,
				Metadata: map[string]interface{}{
					"exit_code": exitCode,
				},
			}
			if exitCode != 0 {
				result.Error = fmt.Sprintf("command exited with code %d", exitCode)
			}
			return result, nil
		},
	}
}

type bashCapability struct{}

// ExtractSignatureContent puts the trimmed command on the signature wire:
// Bash(rm -rf /tmp/x).
func (bashCapability) ExtractSignatureContent(params map[string]interface{}) (string, error) {
	command, _ := params["command"].(string)
	return strings.TrimSpace(command), nil
}

// AbstractRule offers "Bash(<argv0> *)" as the always-allow pattern. When
// the leading word is not a plain literal (expansions, substitutions) the
// tool opts out rather than offer an over-broad rule.
func (bashCapability) AbstractRule(params map[string]interface{}) (string, error) {
	command, _ := params["command"].(string)
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil
	}

	file, err := parseShell(command)
	if err != nil {
		return "", err
	}

	argv0 := firstCommandWord(file)
	if argv0 == "" {
		return "", nil
	}
	return fmt.Sprintf("Bash(%s *)", argv0), nil
}

// Describe implements invoke.Describer.
func (bashCapability) Describe(params map[string]interface{}) string {
	command, _ := params["command"].(string)
	return fmt.Sprintf("Run shell command: %s", strings.TrimSpace(command))
}

// AffectedPaths implements invoke.PathProjector: the working directory plus
// every literal redirection target.
func (bashCapability) AffectedPaths(params map[string]interface{}) []string {
	var paths []string
	if cwd, ok := params["cwd"].(string); ok && cwd != "" {
		paths = append(paths, cwd)
	}

	command, _ := params["command"].(string)
	file, err := parseShell(strings.TrimSpace(command))
	if err != nil {
		return paths
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		if redir, ok := node.(*syntax.Redirect); ok && redir.Word != nil {
			if target := wordLiteral(redir.Word); target != "" {
				paths = append(paths, target)
			}
		}
		return true
	})
	return paths
}

func parseShell(command string) (*syntax.File, error) {
	return syntax.NewParser().Parse(strings.NewReader(command), "")
}

// firstCommandWord returns the literal first word of the first call
// expression, or "" when it is not a plain literal.
func firstCommandWord(file *syntax.File) string {
	var argv0 string
	syntax.Walk(file, func(node syntax.Node) bool {
		if argv0 != "" {
			return false
		}
		if call, ok := node.(*syntax.CallExpr); ok && len(call.Args) > 0 {
			argv0 = wordLiteral(call.Args[0])
			return false
		}
		return true
	})
	return argv0
}

// wordLiteral flattens a word made only of literal parts.
func wordLiteral(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		lit, ok := part.(*syntax.Lit)
		if !ok {
			return ""
		}
		sb.WriteString(lit.Value)
	}
	return sb.String()
}
