package policy

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// toolNameRE anchors the tool-name segment of a signature or rule: a leading
// run of non-paren, non-space characters followed by "(" or end of string.
// Rule-side segments may contain glob metacharacters.
var toolNameRE = regexp.MustCompile(`^([^()\s]+)(?:\(|$)`)

// MatchRule evaluates one signature against one rule pattern. It returns the
// match type and true when the rule covers the signature. Evaluation is
// stateless; cheap exact and wildcard checks run before the structured and
// glob paths.
func MatchRule(signature, rule string) (MatchType, bool) {
	// Tier 1: exact string equality.
	if signature == rule {
		return MatchExact, true
	}

	// Tier 2: the universal wildcard rule.
	if rule == "*" || rule == "**" {
		return MatchWildcard, true
	}

	sigTool, ok := toolNameSegment(signature)
	if !ok {
		return "", false
	}
	ruleTool, ok := toolNameSegment(rule)
	if !ok {
		return "", false
	}

	// Tool-name segments must agree, by glob when the rule segment carries a
	// star (dot-aware: "*" stops at dots, "**" crosses them).
	if strings.ContainsRune(ruleTool, '*') {
		if !matchGlobPattern(ruleTool, sigTool, '.') {
			return "", false
		}
	} else if ruleTool != sigTool {
		return "", false
	}

	// Tier 3: a bare tool-name rule authorizes every call to that tool.
	if rule == ruleTool {
		return MatchPrefix, true
	}

	ruleClause := paramClause(rule)
	sigClause := paramClause(signature)

	if ruleClause == "*" || ruleClause == "**" {
		return MatchWildcard, true
	}

	matchType := MatchWildcard
	if strings.Contains(rule, "**") {
		matchType = MatchGlob
	}

	// Tier 4: structured key:value matching, then whole-signature glob.
	if matchParams(sigClause, ruleClause) {
		return matchType, true
	}
	if strings.ContainsAny(rule, "*{?") && matchGlobPattern(rule, signature) {
		return matchType, true
	}

	return "", false
}

// toolNameSegment extracts the leading tool-name segment, reporting false
// when the string does not start with one.
func toolNameSegment(s string) (string, bool) {
	m := toolNameRE.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// paramClause returns the parenthesized substring of a signature or rule, or
// "" when there is none.
func paramClause(s string) string {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return ""
	}
	return s[open+1 : len(s)-1]
}

// matchParams applies the structured parameter-clause semantics: rule keys
// are necessary and sufficient, extra signature keys never block a match.
// Clauses without key:value pairs fall back to opaque-string comparison.
func matchParams(sigClause, ruleClause string) bool {
	sigPairs := parsePairs(sigClause)
	rulePairs := parsePairs(ruleClause)

	if len(rulePairs) == 0 && len(sigPairs) == 0 {
		return matchOpaque(sigClause, ruleClause)
	}
	if len(rulePairs) == 0 || len(sigPairs) == 0 {
		return false
	}

	sigValues := make(map[string]string, len(sigPairs))
	for _, p := range sigPairs {
		if _, exists := sigValues[p.key]; !exists {
			sigValues[p.key] = p.value
		}
	}

	for _, rp := range rulePairs {
		sv, present := sigValues[rp.key]
		if !present {
			return false
		}
		if rp.value == "*" || rp.value == "**" {
			continue
		}
		if strings.ContainsAny(rp.value, "*{?") {
			if !matchGlobPattern(rp.value, sv) {
				return false
			}
			continue
		}
		if rp.value != sv {
			return false
		}
	}

	return true
}

// matchOpaque compares two pair-free clauses as opaque strings.
func matchOpaque(sigClause, ruleClause string) bool {
	if ruleClause == "*" || ruleClause == "**" {
		return true
	}
	if strings.ContainsAny(ruleClause, "*{?") {
		return matchGlobPattern(ruleClause, sigClause)
	}
	return ruleClause == sigClause
}

// matchGlobPattern compiles pattern and matches s. Matching is
// case-sensitive. Without separators a single star crosses everything;
// with separators it stops at them and "**" crosses.
func matchGlobPattern(pattern, s string, separators ...rune) bool {
	g, err := glob.Compile(pattern, separators...)
	if err != nil {
		log.Warn().
			Err(err).
			Str("pattern", pattern).
			Msg("Invalid glob pattern in rule")
		return false
	}
	return g.Match(s)
}
