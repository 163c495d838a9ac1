package policy

import "strings"

// The structural splitter is an explicit-state tokenizer over parameter
// clauses. It tracks nesting depth for {} () [] and quote state for ' and ",
// honors backslash escaping, and only splits at depth zero outside quotes.

type pair struct {
	key   string
	value string
}

// splitTopLevel splits s on sep at nesting depth zero, outside quotes.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	var quote rune
	escaped := false

	for _, ch := range s {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			current.WriteRune(ch)
			escaped = true
			continue
		}
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			current.WriteRune(ch)
			continue
		}

		switch ch {
		case '\'', '"':
			quote = ch
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		}

		if ch == sep && depth == 0 {
			parts = append(parts, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(ch)
	}

	parts = append(parts, current.String())
	return parts
}

// cutTopLevel splits s around the first occurrence of sep at depth zero,
// mirroring strings.Cut.
func cutTopLevel(s string, sep rune) (before, after string, found bool) {
	depth := 0
	var quote rune
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"':
			quote = ch
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		}

		if ch == sep && depth == 0 {
			return s[:i], s[i+len(string(ch)):], true
		}
	}

	return s, "", false
}

// parsePairs parses a parameter clause into ordered key:value pairs.
// Segments without a top-level colon yield no pair.
func parsePairs(clause string) []pair {
	if strings.TrimSpace(clause) == "" {
		return nil
	}

	var pairs []pair
	for _, segment := range splitTopLevel(clause, ',') {
		key, value, ok := cutTopLevel(segment, ':')
		if !ok {
			continue
		}
		pairs = append(pairs, pair{
			key:   strings.TrimSpace(key),
			value: strings.TrimSpace(value),
		})
	}
	return pairs
}
