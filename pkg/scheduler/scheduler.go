// Package scheduler runs batches of bound invocations through the policy
// gate: denied calls never execute, ask calls go through the confirmation
// handler, and invocations declared concurrency-unsafe are serialized.
package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/harun/gatekit/pkg/invoke"
	"github.com/harun/gatekit/pkg/policy"
)

// Runner executes invocations under one policy engine and one base
// execution context.
type Runner struct {
	engine *policy.Engine
	base   invoke.ExecContext
}

// NewRunner creates a runner. The engine is injected explicitly so the
// rules active for a batch are reproducible.
func NewRunner(engine *policy.Engine, base invoke.ExecContext) *Runner {
	return &Runner{engine: engine, base: base}
}

// Run executes a batch. Concurrency-safe invocations fan out in parallel;
// unsafe ones run afterward, serially, in submission order. Results are
// positional with the batch.
func (r *Runner) Run(ctx context.Context, batch []*invoke.Invocation) []invoke.Result {
	results := make([]invoke.Result, len(batch))

	var wg conc.WaitGroup
	var serial []int
	for i, inv := range batch {
		if !inv.Descriptor().IsConcurrencySafe() {
			serial = append(serial, i)
			continue
		}
		i, inv := i, inv
		wg.Go(func() {
			results[i] = r.RunOne(ctx, inv)
		})
	}
	wg.Wait()

	for _, i := range serial {
		results[i] = r.RunOne(ctx, batch[i])
	}

	return results
}

// RunOne gates and executes a single invocation.
func (r *Runner) RunOne(ctx context.Context, inv *invoke.Invocation) invoke.Result {
	if ctx.Err() != nil {
		return invoke.CancelledResult()
	}

	decision := r.engine.Check(inv.CallSpec())

	switch decision.Behavior {
	case policy.BehaviorDeny:
		log.Warn().
			Str("tool", inv.Descriptor().Name).
			Str("rule", decision.MatchedRule).
			Msg("Invocation blocked by policy")
		return invoke.Result{
			Success: false,
			Error:   decision.Reason,
			Metadata: map[string]interface{}{
				"policy_violation": true,
				"matched_rule":     decision.MatchedRule,
			},
		}

	case policy.BehaviorAsk:
		result, approved := r.confirm(ctx, inv, decision)
		if !approved {
			return result
		}
	}

	return inv.Execute(ctx, r.base, nil)
}

// confirm routes an ask decision through the confirmation handler. An
// approved response may carry a remembered rule, merged into the allow list
// for subsequent checks.
func (r *Runner) confirm(ctx context.Context, inv *invoke.Invocation, decision policy.Decision) (invoke.Result, bool) {
	if r.base.Confirm == nil {
		return invoke.Result{
			Success: false,
			Error:   fmt.Sprintf("confirmation required but no handler configured: %s", decision.Reason),
		}, false
	}

	req := invoke.ConfirmationRequest{
		ToolName:      inv.Descriptor().Name,
		Signature:     inv.Signature(),
		Description:   inv.Description(),
		AffectedPaths: inv.AffectedPaths(),
		Decision:      decision,
		SessionID:     r.base.SessionID,
	}

	resp, err := r.base.Confirm.Confirm(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return invoke.CancelledResult(), false
		}
		return invoke.ErrorResult(err), false
	}
	if !resp.Approved {
		return invoke.Result{
			Success: false,
			Error:   fmt.Sprintf("confirmation refused: %s", resp.Reason),
		}, false
	}

	if resp.RememberRule != "" {
		r.engine.UpdateRules(policy.Ruleset{Allow: []string{resp.RememberRule}})
	}
	return invoke.Result{}, true
}

// OfferRule derives the "always allow" rule pattern for an invocation, for
// confirmation surfaces to present. The second return value is false when
// the tool opts out of auto-rule generation.
func OfferRule(inv *invoke.Invocation) (string, bool) {
	desc := inv.Descriptor()
	return policy.AbstractRule(desc.Name, inv.Params(), desc.Capability)
}
