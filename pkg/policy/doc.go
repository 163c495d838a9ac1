// Package policy decides whether a requested tool call is auto-approved,
// requires human confirmation, or is denied.
//
// Invariants:
// - Deny rules are evaluated before allow rules, allow before ask.
// - A call matched by no rule always resolves to ask.
// - Signature building is total: extractor failures degrade to the bare tool name.
// - Check is synchronous and never blocks.
//
// Usage:
//
//	engine := policy.NewEngine(policy.Ruleset{
//		Deny:  []string{"Bash(rm *)"},
//		Allow: []string{"Read", "Bash(git *)"},
//	})
//	decision := engine.Check(policy.CallSpec{ToolName: "Read", Params: params})
package policy
