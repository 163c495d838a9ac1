package policy

// Behavior is the outcome of a permission check.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorAsk   Behavior = "ask"
	BehaviorDeny  Behavior = "deny"
)

// MatchType describes how a rule satisfied a signature.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchPrefix   MatchType = "prefix"
	MatchWildcard MatchType = "wildcard"
	MatchGlob     MatchType = "glob"
)

// Ruleset holds the three ordered rule lists consulted by the engine.
// Rules are plain pattern strings: "ToolName", "ToolName(exact)",
// "ToolName(key:value)", "ToolName(key:glob*)", "*", "**".
type Ruleset struct {
	Deny  []string `json:"deny"`
	Allow []string `json:"allow"`
	Ask   []string `json:"ask"`
}

// Clone returns a deep copy so callers cannot mutate engine state through
// shared slices.
func (rs Ruleset) Clone() Ruleset {
	return Ruleset{
		Deny:  append([]string(nil), rs.Deny...),
		Allow: append([]string(nil), rs.Allow...),
		Ask:   append([]string(nil), rs.Ask...),
	}
}

// Decision is the result of one permission check. MatchedRule and MatchType
// are empty when no rule matched (the default-ask outcome).
type Decision struct {
	Behavior    Behavior `json:"behavior"`
	MatchedRule string   `json:"matched_rule,omitempty"`
	MatchType   MatchType `json:"match_type,omitempty"`
	Reason      string   `json:"reason"`
}

// CallSpec describes one requested tool call for permission checking.
// Capability optionally implements SignatureExtractor and RuleAbstractor.
type CallSpec struct {
	ToolName      string
	Params        map[string]interface{}
	AffectedPaths []string
	Capability    interface{}
}
