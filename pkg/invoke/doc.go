// Package invoke binds validated tool parameters to executable invocations
// under a uniform cancellation, confirmation, and result contract.
//
// Invariants:
// - Parameters are schema-validated before any side effect.
// - Validation failures carry structured per-field errors.
// - Cancellation yields a distinguishable cancelled result, never a generic failure.
// - Description and affected paths are pure projections of the bound parameters.
//
// Usage:
//
//	inv, err := desc.Build(map[string]interface{}{"file_path": "/tmp/x"})
//	if err != nil { ... }
//	result := inv.Execute(ctx, base, nil)
package invoke
