package helpers

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when a model response carries no usable JSON value.
var ErrNoJSON = errors.New("no balanced JSON value found")

// ExtractBalanced returns the first balanced, valid JSON value in s that
// starts with open ('{' or '['). Brackets inside JSON strings are ignored and
// candidates that balance but do not parse are skipped, so prose such as
// "see [1]" before the payload does not hide it.
func ExtractBalanced(s string, open byte) (string, error) {
	if open != '{' && open != '[' {
		return "", errors.New("open must be '{' or '['")
	}
	for _, src := range sources(s) {
		for i := 0; i < len(src); i++ {
			if src[i] != open {
				continue
			}
			if out, ok := extractBalancedJSONFrom(src, i); ok && json.Valid([]byte(out)) {
				return out, nil
			}
		}
	}
	return "", ErrNoJSON
}

// sources lists the texts to scan in order: the body of a leading code fence,
// then the whole reply, so JSON written after a fenced note is still found.
func sources(s string) []string {
	s = trimBOM(strings.TrimSpace(s))
	if inner, ok := stripFirstCodeFence(s); ok {
		return []string{strings.TrimSpace(inner), s}
	}
	return []string{s}
}

// stripFirstCodeFence removes the first fenced code block if s starts with ``` or ~~~.
// It accepts an optional language tag (e.g., ```json).
func stripFirstCodeFence(s string) (inner string, ok bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	if !strings.HasPrefix(trim, "```") && !strings.HasPrefix(trim, "~~~") {
		return "", false
	}
	fence := trim[:3]
	rest := trim[len(fence):]
	idx := strings.IndexByte(rest, '\n')
	if idx == -1 {
		return "", false
	}
	rest = rest[idx+1:]
	if end := strings.Index(rest, fence); end != -1 {
		return rest[:end], true
	}
	return "", false
}

// extractBalancedJSONFrom attempts to extract a balanced JSON value starting at startIdx.
// It supports objects and arrays and correctly handles strings and escape sequences.
func extractBalancedJSONFrom(s string, startIdx int) (string, bool) {
	if startIdx < 0 || startIdx >= len(s) {
		return "", false
	}
	start := s[startIdx]
	if start != '{' && start != '[' {
		return "", false
	}

	stack := []byte{start}
	inString, escape := false, false
	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[startIdx : i+1], true
			}
		}
	}
	return "", false
}

// trimBOM removes an optional UTF-8 BOM.
func trimBOM(s string) string {
	if strings.HasPrefix(s, "\uFEFF") {
		return strings.TrimPrefix(s, "\uFEFF")
	}
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF && utf8.ValidString(s[3:]) {
		return s[3:]
	}
	return s
}

// JSONCandidates returns every top-level balanced, valid JSON object or array
// in s, in order of appearance. Values nested inside a returned candidate are
// not reported separately.
func JSONCandidates(s string) []string {
	for _, src := range sources(s) {
		var out []string
		for i := 0; i < len(src); i++ {
			if src[i] != '{' && src[i] != '[' {
				continue
			}
			if v, ok := extractBalancedJSONFrom(src, i); ok && json.Valid([]byte(v)) {
				out = append(out, v)
				i += len(v) - 1
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
