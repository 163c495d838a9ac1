package policy

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/harun/gatekit/internal/logger"
)

// Engine evaluates tool calls against deny/allow/ask rule lists with fixed
// precedence: deny, then allow, then ask, first match in a list wins. One
// engine serves one session or workspace; callers inject it explicitly so
// the active rule set is always reproducible.
//
// Rule lists may be mutated concurrently with in-flight Check calls; a check
// observes either the old or the new generation.
type Engine struct {
	mu    sync.RWMutex
	rules Ruleset
}

// NewEngine creates an engine seeded with the given rule lists.
func NewEngine(rules Ruleset) *Engine {
	return &Engine{rules: rules.Clone()}
}

// Check builds the call signature and resolves it to a decision. It is
// synchronous, never blocks, and computes fresh on every call. A call
// matched by no rule resolves to ask: unmatched calls require confirmation,
// they never auto-execute.
func (e *Engine) Check(call CallSpec) Decision {
	signature := BuildSignature(call.ToolName, call.Params, call.Capability)

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if rule, matchType, ok := firstMatch(signature, rules.Deny); ok {
		log.Debug().
			Str("signature", logger.Redact(signature)).
			Str("rule", rule).
			Msg("Tool call denied by rule")
		return Decision{
			Behavior:    BehaviorDeny,
			MatchedRule: rule,
			MatchType:   matchType,
			Reason:      fmt.Sprintf("%s denied by rule %q", signature, rule),
		}
	}

	if rule, matchType, ok := firstMatch(signature, rules.Allow); ok {
		return Decision{
			Behavior:    BehaviorAllow,
			MatchedRule: rule,
			MatchType:   matchType,
			Reason:      fmt.Sprintf("%s allowed by rule %q", signature, rule),
		}
	}

	if rule, matchType, ok := firstMatch(signature, rules.Ask); ok {
		return Decision{
			Behavior:    BehaviorAsk,
			MatchedRule: rule,
			MatchType:   matchType,
			Reason:      fmt.Sprintf("%s requires confirmation by rule %q", signature, rule),
		}
	}

	return Decision{
		Behavior: BehaviorAsk,
		Reason:   fmt.Sprintf("no rule matched %s; confirmation required", signature),
	}
}

// IsAllowed reports whether the call resolves to allow.
func (e *Engine) IsAllowed(call CallSpec) bool {
	return e.Check(call).Behavior == BehaviorAllow
}

// IsDenied reports whether the call resolves to deny.
func (e *Engine) IsDenied(call CallSpec) bool {
	return e.Check(call).Behavior == BehaviorDeny
}

// NeedsConfirmation reports whether the call resolves to ask.
func (e *Engine) NeedsConfirmation(call CallSpec) bool {
	return e.Check(call).Behavior == BehaviorAsk
}

// UpdateRules merges new entries additively into the existing lists,
// skipping duplicates. The merged set is visible to the next Check.
func (e *Engine) UpdateRules(rules Ruleset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = Ruleset{
		Deny:  mergeRules(e.rules.Deny, rules.Deny),
		Allow: mergeRules(e.rules.Allow, rules.Allow),
		Ask:   mergeRules(e.rules.Ask, rules.Ask),
	}

	log.Info().
		Int("deny", len(e.rules.Deny)).
		Int("allow", len(e.rules.Allow)).
		Int("ask", len(e.rules.Ask)).
		Msg("Rule lists updated")
}

// ReplaceRules overwrites all three lists. The new set is visible to the
// next Check.
func (e *Engine) ReplaceRules(rules Ruleset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = rules.Clone()

	log.Info().
		Int("deny", len(e.rules.Deny)).
		Int("allow", len(e.rules.Allow)).
		Int("ask", len(e.rules.Ask)).
		Msg("Rule lists replaced")
}

// Rules returns a snapshot of the current rule lists.
func (e *Engine) Rules() Ruleset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules.Clone()
}

// firstMatch scans one ordered rule list and returns the first rule covering
// the signature.
func firstMatch(signature string, rules []string) (string, MatchType, bool) {
	for _, rule := range rules {
		if matchType, ok := MatchRule(signature, rule); ok {
			return rule, matchType, true
		}
	}
	return "", "", false
}

// mergeRules appends additions not already present, preserving order. A new
// slice is always returned so concurrent readers keep a stable view.
func mergeRules(existing, additions []string) []string {
	merged := append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, rule := range existing {
		seen[rule] = true
	}
	for _, rule := range additions {
		if rule == "" || seen[rule] {
			continue
		}
		seen[rule] = true
		merged = append(merged, rule)
	}
	return merged
}
