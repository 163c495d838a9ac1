package policy

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/harun/gatekit/internal/logger"
)

// SignatureExtractor is implemented by tool capabilities that reduce a
// parameter map to the content portion of a call signature.
type SignatureExtractor interface {
	ExtractSignatureContent(params map[string]interface{}) (string, error)
}

// RuleAbstractor is implemented by tool capabilities that turn a parameter
// map into a reusable rule pattern. Returning an empty string opts the tool
// out of auto-rule generation.
type RuleAbstractor interface {
	AbstractRule(params map[string]interface{}) (string, error)
}

// BuildSignature builds the canonical signature for a tool call:
// "Name(content)" when the capability extracts non-empty content, the bare
// tool name otherwise. Extractor errors and panics are contained here so a
// faulty tool-supplied callback cannot take down the permission pipeline.
func BuildSignature(toolName string, params map[string]interface{}, capability interface{}) string {
	extractor, ok := capability.(SignatureExtractor)
	if !ok {
		return toolName
	}

	content, err := safeExtract(extractor, params)
	if err != nil {
		log.Warn().
			Str("tool", toolName).
			Err(err).
			Msg("Signature extractor failed, falling back to bare tool name")
		return toolName
	}
	if content == "" {
		return toolName
	}

	return toolName + "(" + content + ")"
}

// AbstractRule derives a reusable rule pattern from a tool call, for the
// "always allow this pattern" flow. The second return value is false when
// the tool opts out of auto-rule generation. When no abstractor is present,
// or it fails, the bare tool name is offered as a whole-tool rule.
func AbstractRule(toolName string, params map[string]interface{}, capability interface{}) (string, bool) {
	abstractor, ok := capability.(RuleAbstractor)
	if !ok {
		return toolName, true
	}

	rule, err := safeAbstract(abstractor, params)
	if err != nil {
		log.Warn().
			Str("tool", toolName).
			Err(err).
			Msg("Rule abstractor failed, falling back to bare tool name")
		return toolName, true
	}
	if rule == "" {
		// Explicit opt-out sentinel.
		log.Debug().Str("tool", toolName).Msg("Tool opted out of auto-rule generation")
		return "", false
	}

	log.Debug().
		Str("tool", toolName).
		Str("rule", logger.Redact(rule)).
		Msg("Abstracted rule pattern")

	return rule, true
}

func safeExtract(extractor SignatureExtractor, params map[string]interface{}) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signature extractor panicked: %v", r)
		}
	}()
	return extractor.ExtractSignatureContent(params)
}

func safeAbstract(abstractor RuleAbstractor, params map[string]interface{}) (rule string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule abstractor panicked: %v", r)
		}
	}()
	return abstractor.AbstractRule(params)
}
