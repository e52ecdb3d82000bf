package prompt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\${([^}]+)}`)

// Template is a prompt text with embedded ${...} expressions, compiled once
// and evaluated against a set of variables per call.
type Template struct {
	raw   string
	parts []string
	codes []Script
}

// NewTemplate compiles all ${...} expressions in raw.
func NewTemplate(engine Compiler, raw string) (*Template, error) {
	t := &Template{raw: raw}

	// Validate that all ${...} expressions are properly closed
	openCount := strings.Count(raw, "${")
	closeCount := strings.Count(raw, "}")
	if openCount > closeCount {
		return nil, fmt.Errorf("unclosed template expression in string: %q", raw)
	}
	if openCount == 0 {
		return t, nil
	}

	matches := exprPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return t, nil
	}

	var lastEnd int
	var parts []string
	var codes []Script
	for _, match := range matches {
		if match[0] > lastEnd {
			parts = append(parts, raw[lastEnd:match[0]])
		}
		expr := raw[match[2]:match[3]]
		script, err := engine.Compile(context.Background(), expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template expression %q: %w", expr, err)
		}
		codes = append(codes, script)
		parts = append(parts, "") // Placeholder for the evaluated result
		lastEnd = match[1]
	}
	if lastEnd < len(raw) {
		parts = append(parts, raw[lastEnd:])
	}

	t.parts = parts
	t.codes = codes
	return t, nil
}

// Raw returns the uncompiled template text.
func (t *Template) Raw() string {
	return t.raw
}

// Render evaluates the template's expressions against vars and returns the
// final prompt text.
func (t *Template) Render(ctx context.Context, vars map[string]any) (string, error) {
	if len(t.codes) == 0 {
		return t.raw, nil
	}

	parts := make([]string, len(t.parts))
	copy(parts, t.parts)

	for _, code := range t.codes {
		result, err := code.Evaluate(ctx, vars)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate template expression: %w", err)
		}
		// Fill the next empty placeholder
		for j := range parts {
			if parts[j] == "" {
				parts[j] = result.String()
				break
			}
		}
	}
	return strings.Join(parts, ""), nil
}
