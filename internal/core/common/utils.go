// Package common holds helpers shared by the LLM-facing packages.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model reply carries no JSON object.
var ErrNoJSON = errors.New("no JSON object found in response")

// ParseJSON decodes the first balanced JSON object in a model reply.
// Markdown fences and chatter before or after the object are ignored.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	obj, err := firstObject(response)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, obj)
	}
	return result, nil
}

// firstObject scans for the object opened by the first '{', tracking string
// literals so braces inside values do not end it early.
func firstObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("%w (missing '{')", ErrNoJSON)
	}

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
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w (missing '}')", ErrNoJSON)
}
