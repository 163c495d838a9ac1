package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/gatekit/internal/logger"
	"github.com/harun/gatekit/pkg/policy"
)

// pathParamKeys are the well-known parameter names scanned by the default
// affected-paths projection. The projection is a conservative superset: a
// tool whose paths cannot be derived this way must supply a PathProjector.
var pathParamKeys = []string{"file_path", "path", "cwd", "directory", "notebook_path"}

// Invocation is one bound, executable instance of a tool call with
// validated parameters.
type Invocation struct {
	desc   *Descriptor
	params map[string]interface{}
	id     string
}

// Build validates params against the declared schema and binds them to an
// executable invocation. It fails with a *ValidationError carrying
// structured per-field messages, before any side effect occurs.
func (d *Descriptor) Build(params map[string]interface{}) (*Invocation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	schema, err := d.compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("tool %s has an invalid parameter schema: %w", d.Name, err)
	}

	bound := applyDefaults(d.Parameters, params)

	result, err := schema.Validate(gojsonschema.NewGoLoader(bound))
	if err != nil {
		return nil, &ValidationError{
			Tool:   d.Name,
			Fields: []FieldError{{Message: err.Error()}},
		}
	}
	if !result.Valid() {
		fields := make([]FieldError, 0, len(result.Errors()))
		for _, resErr := range result.Errors() {
			fields = append(fields, FieldError{
				Field:   resErr.Field(),
				Message: resErr.Description(),
			})
		}
		log.Debug().
			Str("tool", d.Name).
			Int("errors", len(fields)).
			Msg("Parameter validation failed")
		return nil, &ValidationError{Tool: d.Name, Fields: fields}
	}

	id, err := gonanoid.New(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invocation id: %w", err)
	}

	return &Invocation{desc: d, params: bound, id: id}, nil
}

// applyDefaults fills missing optional parameters with declared defaults.
// The input map is never mutated.
func applyDefaults(declared []Parameter, params map[string]interface{}) map[string]interface{} {
	bound := make(map[string]interface{}, len(params))
	for k, v := range params {
		bound[k] = v
	}
	for _, param := range declared {
		if param.Default == nil {
			continue
		}
		if _, present := bound[param.Name]; !present {
			bound[param.Name] = param.Default
		}
	}
	return bound
}

// ID returns the short invocation identifier used for log correlation.
func (inv *Invocation) ID() string {
	return inv.id
}

// Descriptor returns the static declaration this invocation is bound to.
func (inv *Invocation) Descriptor() *Descriptor {
	return inv.desc
}

// Params returns a copy of the bound parameters.
func (inv *Invocation) Params() map[string]interface{} {
	params := make(map[string]interface{}, len(inv.params))
	for k, v := range inv.params {
		params[k] = v
	}
	return params
}

// CallSpec projects the invocation into the policy engine's input.
func (inv *Invocation) CallSpec() policy.CallSpec {
	return policy.CallSpec{
		ToolName:      inv.desc.Name,
		Params:        inv.Params(),
		AffectedPaths: inv.AffectedPaths(),
		Capability:    inv.desc.Capability,
	}
}

// Signature returns the canonical call signature for this invocation.
func (inv *Invocation) Signature() string {
	return policy.BuildSignature(inv.desc.Name, inv.params, inv.desc.Capability)
}

// Description is a pure projection of the bound parameters, computable
// without performing the action.
func (inv *Invocation) Description() string {
	if describer, ok := inv.desc.Capability.(Describer); ok {
		if desc := describer.Describe(inv.Params()); desc != "" {
			return desc
		}
	}
	return inv.Signature()
}

// AffectedPaths projects the filesystem paths the action will touch. The
// projection must be a conservative superset, never omitting a path.
func (inv *Invocation) AffectedPaths() []string {
	if projector, ok := inv.desc.Capability.(PathProjector); ok {
		return projector.AffectedPaths(inv.Params())
	}

	var paths []string
	for _, key := range pathParamKeys {
		if value, ok := inv.params[key].(string); ok && value != "" {
			paths = append(paths, value)
		}
	}
	return paths
}

// Execute merges the base execution context with caller overrides and runs
// the executor. A cancelled context yields the distinguishable cancelled
// result rather than a failure.
func (inv *Invocation) Execute(ctx context.Context, base ExecContext, partial *ExecContext) Result {
	start := time.Now()
	execCtx := base.Merge(partial)

	if ctx.Err() != nil {
		return inv.finish(CancelledResult(), start)
	}

	log.Debug().
		Str("invocation", inv.id).
		Str("tool", inv.desc.Name).
		Str("signature", logger.Redact(inv.Signature())).
		Msg("Executing tool")

	result, err := inv.desc.Executor(ctx, inv.Params(), &execCtx)

	if ctx.Err() != nil || errors.Is(err, ErrCancelled) {
		log.Debug().
			Str("invocation", inv.id).
			Str("tool", inv.desc.Name).
			Msg("Invocation cancelled")
		return inv.finish(CancelledResult(), start)
	}

	if err != nil {
		execErr := &ExecutionError{Tool: inv.desc.Name, Err: err}
		log.Error().
			Str("invocation", inv.id).
			Str("tool", inv.desc.Name).
			Err(err).
			Msg("Tool execution failed")
		return inv.finish(ErrorResult(execErr), start)
	}

	if result.DisplayContent == "" {
		result.DisplayContent = result.LLMContent
	}

	return inv.finish(result, start)
}

// finish stamps shared metadata on the outgoing result.
func (inv *Invocation) finish(result Result, start time.Time) Result {
	if result.Metadata == nil {
		result.Metadata = map[string]interface{}{}
	}
	result.Metadata["invocation_id"] = inv.id
	result.Metadata["duration_ms"] = time.Since(start).Milliseconds()
	return result
}
