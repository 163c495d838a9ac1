package invoke

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks cooperative cancellation of an invocation. Executors
// return it (or wrap it) when they stop because the context was cancelled;
// callers must not render it as a failure.
var ErrCancelled = errors.New("invocation cancelled")

// FieldError describes one invalid or missing parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed parameters, caught at Build before any
// side effect occurs.
type ValidationError struct {
	Tool   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" || f.Field == "(root)" {
			msgs = append(msgs, f.Message)
			continue
		}
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid parameters for tool %s: %s", e.Tool, strings.Join(msgs, "; "))
}

// ExecutionError reports a failure inside the tool body, after validation
// and permission checks passed.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
