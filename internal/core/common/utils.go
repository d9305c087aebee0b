package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseStatus tags how a generative response was turned into JSON.
type ParseStatus string

const (
	ParseValidated ParseStatus = "validated"
	ParseRepaired  ParseStatus = "repaired"
	ParseFailed    ParseStatus = "failed"
)

var ErrNoJSONObject = errors.New("no JSON object found in response (missing '{')")

const maxErrorData = 512

// ParseJSON extracts one JSON object from free-form LLM output and
// unmarshals it into T. Steps run in order until one succeeds: strip
// wrappers (code fences, surrounding prose), strict parse, bounded repair
// and reparse.
func ParseJSON[T any](response string) (T, ParseStatus, error) {
	var zero T

	candidate, err := StripWrappers(response)
	if err != nil {
		return zero, ParseFailed, err
	}

	var result T
	strictErr := json.Unmarshal([]byte(candidate), &result)
	if strictErr == nil {
		return result, ParseValidated, nil
	}

	if repaired := Repair(candidate); repaired != candidate {
		var fixed T
		if err := json.Unmarshal([]byte(repaired), &fixed); err == nil {
			return fixed, ParseRepaired, nil
		}
	}

	return zero, ParseFailed, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", strictErr, truncate(candidate, maxErrorData))
}

// StripWrappers returns the first JSON object in response, from its opening
// '{' to the matching '}', looking inside the first fenced code block when
// there is one. An object that never closes keeps everything after the
// opening brace so Repair can close it.
func StripWrappers(response string) (string, error) {
	text := strings.TrimSpace(response)

	if i := strings.Index(text, "```"); i != -1 {
		body := text[i+3:]
		// Drop the info string ("json") on the fence line.
		if nl := strings.IndexByte(body, '\n'); nl != -1 {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(body, "json")
		}
		if j := strings.Index(body, "```"); j != -1 {
			body = body[:j]
		}
		if strings.Contains(body, "{") {
			text = body
		}
	}

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}
	end := closingBrace(text, start)
	if end == -1 {
		return strings.TrimSpace(text[start:]), nil
	}
	return text[start : end+1], nil
}

// closingBrace returns the index of the '}' that closes the object opened
// at start, skipping braces inside strings, or -1 when it never closes.
func closingBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Repair applies bounded fixes to almost-JSON: raw control characters in
// strings are escaped, trailing commas and stray closers are dropped, and an
// unterminated string plus any unclosed braces or brackets are closed.
func Repair(s string) string {
	var (
		out      strings.Builder
		stack    []byte
		inString bool
		escaped  bool
	)
	out.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
				out.WriteByte(c)
			case c == '\\':
				escaped = true
				out.WriteByte(c)
			case c == '"':
				inString = false
				out.WriteByte(c)
			case c == '\n':
				out.WriteString(`\n`)
			case c == '\r':
				out.WriteString(`\r`)
			case c == '\t':
				out.WriteString(`\t`)
			default:
				out.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			out.WriteByte(c)
		case '{':
			stack = append(stack, '}')
			out.WriteByte(c)
		case '[':
			stack = append(stack, ']')
			out.WriteByte(c)
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				continue
			}
			stack = stack[:len(stack)-1]
			out.WriteByte(c)
		case ',':
			if next := nextSignificant(s, i+1); next == '}' || next == ']' || next == 0 {
				continue
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}

	repaired := out.String()
	if inString {
		if escaped {
			repaired = repaired[:len(repaired)-1]
		}
		repaired += `"`
	}

	repaired = strings.TrimRight(repaired, " \t\r\n")
	repaired = strings.TrimSuffix(repaired, ",")
	if strings.HasSuffix(repaired, ":") {
		repaired += "null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		repaired += string(stack[i])
	}
	return repaired
}

func nextSignificant(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return s[i]
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
