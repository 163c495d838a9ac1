package policy

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandExtractor struct{}

func (commandExtractor) ExtractSignatureContent(params map[string]interface{}) (string, error) {
	command, _ := params["command"].(string)
	return command, nil
}

type pathExtractor struct{}

func (pathExtractor) ExtractSignatureContent(params map[string]interface{}) (string, error) {
	path, _ := params["file_path"].(string)
	if path == "" {
		return "", nil
	}
	return "file_path:" + path, nil
}

type panickyExtractor struct{}

func (panickyExtractor) ExtractSignatureContent(map[string]interface{}) (string, error) {
	panic("bad tool callback")
}

// TestEngine_Check_DenyPrecedence tests that deny wins over allow and ask
func TestEngine_Check_DenyPrecedence(t *testing.T) {
	engine := NewEngine(Ruleset{
		Deny:  []string{"Bash(rm *)"},
		Allow: []string{"Bash(*)"},
		Ask:   []string{"Bash(*)"},
	})

	decision := engine.Check(CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "rm -rf /"},
		Capability: commandExtractor{},
	})

	assert.Equal(t, BehaviorDeny, decision.Behavior)
	assert.Equal(t, "Bash(rm *)", decision.MatchedRule)
	assert.Equal(t, MatchWildcard, decision.MatchType)
	assert.NotEmpty(t, decision.Reason)
}

// TestEngine_Check_PrefixAllow tests a bare tool-name allow rule
func TestEngine_Check_PrefixAllow(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Read"}})

	decision := engine.Check(CallSpec{
		ToolName:   "Read",
		Params:     map[string]interface{}{"file_path": "/etc/passwd"},
		Capability: pathExtractor{},
	})

	assert.Equal(t, BehaviorAllow, decision.Behavior)
	assert.Equal(t, "Read", decision.MatchedRule)
	assert.Equal(t, MatchPrefix, decision.MatchType)
}

// TestEngine_Check_DefaultAsk tests the fail-safe default for unmatched calls
func TestEngine_Check_DefaultAsk(t *testing.T) {
	engine := NewEngine(Ruleset{})

	decision := engine.Check(CallSpec{
		ToolName:   "Write",
		Params:     map[string]interface{}{"file_path": "/tmp/x"},
		Capability: pathExtractor{},
	})

	assert.Equal(t, BehaviorAsk, decision.Behavior)
	assert.Empty(t, decision.MatchedRule)
	assert.Empty(t, decision.MatchType)
	assert.NotEmpty(t, decision.Reason)
}

// TestEngine_Check_ExtractorPanicFallsBack tests that a faulty extractor
// cannot crash the permission pipeline
func TestEngine_Check_ExtractorPanicFallsBack(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Bash"}})

	var decision Decision
	assert.NotPanics(t, func() {
		decision = engine.Check(CallSpec{
			ToolName:   "Bash",
			Params:     map[string]interface{}{"command": "ls"},
			Capability: panickyExtractor{},
		})
	})

	// Signature degraded to the bare name, matched exactly by the allow rule.
	assert.Equal(t, BehaviorAllow, decision.Behavior)
	assert.Equal(t, MatchExact, decision.MatchType)
}

// TestEngine_Check_AskRules tests the ask list
func TestEngine_Check_AskRules(t *testing.T) {
	engine := NewEngine(Ruleset{Ask: []string{"Bash(git push *)"}})

	decision := engine.Check(CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "git push origin main"},
		Capability: commandExtractor{},
	})

	assert.Equal(t, BehaviorAsk, decision.Behavior)
	assert.Equal(t, "Bash(git push *)", decision.MatchedRule)
}

// TestEngine_Check_FirstMatchInListWins tests intra-list ordering
func TestEngine_Check_FirstMatchInListWins(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Bash(*)", "Bash(ls)"}})

	decision := engine.Check(CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "ls"},
		Capability: commandExtractor{},
	})

	assert.Equal(t, "Bash(*)", decision.MatchedRule)
}

// TestEngine_Check_Deterministic tests that identical state yields identical decisions
func TestEngine_Check_Deterministic(t *testing.T) {
	engine := NewEngine(Ruleset{
		Deny:  []string{"Bash(rm *)"},
		Allow: []string{"Read", "Bash(git *)"},
	})
	call := CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "git status"},
		Capability: commandExtractor{},
	}

	first := engine.Check(call)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, engine.Check(call))
	}
}

// TestEngine_Derived tests IsAllowed/IsDenied/NeedsConfirmation
func TestEngine_Derived(t *testing.T) {
	engine := NewEngine(Ruleset{
		Deny:  []string{"Bash(rm *)"},
		Allow: []string{"Read"},
	})

	read := CallSpec{ToolName: "Read"}
	rm := CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "rm -rf /"},
		Capability: commandExtractor{},
	}
	write := CallSpec{ToolName: "Write"}

	assert.True(t, engine.IsAllowed(read))
	assert.False(t, engine.IsDenied(read))

	assert.True(t, engine.IsDenied(rm))
	assert.False(t, engine.IsAllowed(rm))

	assert.True(t, engine.NeedsConfirmation(write))
	assert.False(t, engine.IsAllowed(write))
	assert.False(t, engine.IsDenied(write))
}

// TestEngine_UpdateRules tests additive merge with deduplication
func TestEngine_UpdateRules(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Read"}})

	engine.UpdateRules(Ruleset{Allow: []string{"Read", "Edit"}, Deny: []string{"Bash(rm *)"}})

	rules := engine.Rules()
	assert.Equal(t, []string{"Read", "Edit"}, rules.Allow)
	assert.Equal(t, []string{"Bash(rm *)"}, rules.Deny)

	// Takes effect on the next check, no reload delay.
	assert.True(t, engine.IsAllowed(CallSpec{ToolName: "Edit"}))
}

// TestEngine_ReplaceRules tests full overwrite
func TestEngine_ReplaceRules(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Read"}})

	engine.ReplaceRules(Ruleset{Deny: []string{"Read"}})

	assert.True(t, engine.IsDenied(CallSpec{ToolName: "Read"}))
	assert.Empty(t, engine.Rules().Allow)
}

// TestEngine_AbstractRuleRoundTrip tests that an abstracted pattern, added
// as an allow rule, allows the call that generated it
func TestEngine_AbstractRuleRoundTrip(t *testing.T) {
	engine := NewEngine(Ruleset{})
	call := CallSpec{
		ToolName:   "Bash",
		Params:     map[string]interface{}{"command": "git status"},
		Capability: commandExtractor{},
	}

	require.Equal(t, BehaviorAsk, engine.Check(call).Behavior)

	rule, ok := AbstractRule(call.ToolName, call.Params, call.Capability)
	require.True(t, ok)

	engine.UpdateRules(Ruleset{Allow: []string{rule}})
	assert.Equal(t, BehaviorAllow, engine.Check(call).Behavior)
}

// TestEngine_ConcurrentChecksAndUpdates tests that rule edits during
// in-flight checks are safe
func TestEngine_ConcurrentChecksAndUpdates(t *testing.T) {
	engine := NewEngine(Ruleset{Allow: []string{"Read"}})
	call := CallSpec{ToolName: "Read"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if n%2 == 0 {
					decision := engine.Check(call)
					// Either generation of the rule set allows Read.
					assert.Equal(t, BehaviorAllow, decision.Behavior)
				} else {
					engine.UpdateRules(Ruleset{Allow: []string{fmt.Sprintf("Tool%d", j)}})
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestRuleset_Clone tests deep copying
func TestRuleset_Clone(t *testing.T) {
	original := Ruleset{Allow: []string{"Read"}}
	clone := original.Clone()
	clone.Allow[0] = "Write"

	assert.Equal(t, "Read", original.Allow[0])
}
