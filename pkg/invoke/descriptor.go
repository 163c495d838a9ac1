package invoke

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Kind classifies a tool's side effects on the host.
type Kind string

const (
	KindReadOnly Kind = "read_only"
	KindWrite    Kind = "write"
	KindExecute  Kind = "execute"
)

// Parameter declares one tool parameter.
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Executor performs the actual operation of a bound invocation. It must be
// cancellation-cooperative: check ctx before and after blocking sub-steps
// and return ErrCancelled rather than a generic error when stopping early.
type Executor func(ctx context.Context, params map[string]interface{}, execCtx *ExecContext) (Result, error)

// Descriptor is the static declaration of a tool: schema, side-effect kind,
// concurrency safety, executor, and the optional capability object
// (policy.SignatureExtractor, policy.RuleAbstractor, Describer,
// PathProjector).
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	Parameters  []Parameter
	Executor    Executor

	// ReadOnly overrides the Kind-derived default when non-nil.
	ReadOnly *bool

	// ConcurrencySafe declares whether two invocations of this tool may run
	// in parallel without corrupting shared state. When nil it defaults from
	// IsReadOnly. The descriptor only declares the flag; a scheduler is
	// responsible for serializing unsafe invocations.
	ConcurrencySafe *bool

	Capability interface{}

	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
}

// Describer is an optional capability producing a human-readable description
// of a bound call.
type Describer interface {
	Describe(params map[string]interface{}) string
}

// PathProjector is an optional capability projecting the filesystem paths a
// call will touch.
type PathProjector interface {
	AffectedPaths(params map[string]interface{}) []string
}

// IsReadOnly reports whether the tool performs no mutation, defaulting from
// the declared kind.
func (d *Descriptor) IsReadOnly() bool {
	if d.ReadOnly != nil {
		return *d.ReadOnly
	}
	return d.Kind == KindReadOnly
}

// IsConcurrencySafe reports whether two invocations may run in parallel.
// Without an explicit override, read-only tools are safe and mutating ones
// are not.
func (d *Descriptor) IsConcurrencySafe() bool {
	if d.ConcurrencySafe != nil {
		return *d.ConcurrencySafe
	}
	return d.IsReadOnly()
}

// Validate checks the static declaration.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if d.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", d.Name)
	}
	if d.Executor == nil {
		return fmt.Errorf("tool executor cannot be nil for %s", d.Name)
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range d.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty for tool %s", d.Name)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s.%s", param.Type, d.Name, param.Name)
		}
	}

	switch d.Kind {
	case KindReadOnly, KindWrite, KindExecute:
	default:
		return fmt.Errorf("invalid kind %q for tool %s", d.Kind, d.Name)
	}

	return nil
}

// compiledSchema compiles the parameter schema once per descriptor.
func (d *Descriptor) compiledSchema() (*gojsonschema.Schema, error) {
	d.schemaOnce.Do(func() {
		d.schema, d.schemaErr = generateJSONSchema(d.Parameters)
		if d.schemaErr != nil {
			log.Error().
				Str("tool", d.Name).
				Err(d.schemaErr).
				Msg("Failed to compile parameter schema")
		}
	})
	return d.schema, d.schemaErr
}

// generateJSONSchema builds a JSON Schema from the declared parameters.
func generateJSONSchema(params []Parameter) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(params))
	required := []string{}

	for _, param := range params {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}
