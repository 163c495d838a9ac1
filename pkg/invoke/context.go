package invoke

import "github.com/google/uuid"

// OutputSink receives incremental output produced while an invocation runs.
type OutputSink func(chunk string)

// ExecContext carries the collaborators threaded through one invocation:
// output sink, confirmation handler, session identity, permission mode.
// Cancellation rides on the context.Context passed to Execute. An
// ExecContext lives for a single invocation and is never reused across
// retries.
type ExecContext struct {
	Output         OutputSink
	Confirm        ConfirmationHandler
	SessionID      string
	PermissionMode string
	WorkspaceRoot  string
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Merge returns a copy of base with the non-zero fields of override applied.
// A nil override returns base unchanged.
func (base ExecContext) Merge(override *ExecContext) ExecContext {
	if override == nil {
		return base
	}

	merged := base
	if override.Output != nil {
		merged.Output = override.Output
	}
	if override.Confirm != nil {
		merged.Confirm = override.Confirm
	}
	if override.SessionID != "" {
		merged.SessionID = override.SessionID
	}
	if override.PermissionMode != "" {
		merged.PermissionMode = override.PermissionMode
	}
	if override.WorkspaceRoot != "" {
		merged.WorkspaceRoot = override.WorkspaceRoot
	}
	return merged
}

// Emit forwards a chunk to the output sink when one is configured.
func (ec *ExecContext) Emit(chunk string) {
	if ec != nil && ec.Output != nil && chunk != "" {
		ec.Output(chunk)
	}
}
