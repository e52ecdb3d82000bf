package services

import (
	"context"
	"strings"
)

// ContentSafetyCheck validates generated text before it is committed to a
// draft. Implementations may rewrite the text; WasModified reports whether
// they did.
type ContentSafetyCheck interface {
	Validate(ctx context.Context, text string) (validated string, wasModified bool, err error)
}

// PassthroughSafety accepts all text unchanged.
type PassthroughSafety struct{}

func NewPassthroughSafety() *PassthroughSafety {
	return &PassthroughSafety{}
}

func (s *PassthroughSafety) Validate(ctx context.Context, text string) (string, bool, error) {
	return text, false, nil
}

// WordFilterSafety replaces forbidden words with a fixed replacement. Word
// matching is case-insensitive on whole tokens.
type WordFilterSafety struct {
	forbidden   map[string]struct{}
	replacement string
}

// NewWordFilterSafety creates a filter for the given words. An empty
// replacement defaults to "[removed]".
func NewWordFilterSafety(words []string, replacement string) *WordFilterSafety {
	if replacement == "" {
		replacement = "[removed]"
	}
	forbidden := make(map[string]struct{}, len(words))
	for _, word := range words {
		forbidden[strings.ToLower(word)] = struct{}{}
	}
	return &WordFilterSafety{forbidden: forbidden, replacement: replacement}
}

func (s *WordFilterSafety) Validate(ctx context.Context, text string) (string, bool, error) {
	modified := false
	var b strings.Builder
	b.Grow(len(text))

	token := strings.Builder{}
	flush := func() {
		if token.Len() == 0 {
			return
		}
		word := token.String()
		if _, bad := s.forbidden[strings.ToLower(word)]; bad {
			b.WriteString(s.replacement)
			modified = true
		} else {
			b.WriteString(word)
		}
		token.Reset()
	}
	for _, r := range text {
		if isWordRune(r) {
			token.WriteRune(r)
		} else {
			flush()
			b.WriteRune(r)
		}
	}
	flush()
	return b.String(), modified, nil
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}
