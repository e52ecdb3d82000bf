package services

import (
	"context"
	"sort"
	"strings"
)

// NoKnowledgeBase is the sentinel text returned when no document index
// exists. Lookup never fails for "not found"; callers check for this value.
const NoKnowledgeBase = "No knowledge base found. Please run ingestion."

// LookupService retrieves document context for a query.
type LookupService interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
}

// LookupFunc adapts a function into a LookupService.
type LookupFunc func(ctx context.Context, query string, k int) (string, error)

func (f LookupFunc) Retrieve(ctx context.Context, query string, k int) (string, error) {
	return f(ctx, query, k)
}

// NullLookup is a LookupService with no index behind it.
type NullLookup struct{}

func NewNullLookup() *NullLookup {
	return &NullLookup{}
}

func (s *NullLookup) Retrieve(ctx context.Context, query string, k int) (string, error) {
	return NoKnowledgeBase, nil
}

// MemoryLookup is an in-memory document index using keyword-overlap scoring.
// It approximates the behavior of a vector index closely enough for offline
// runs and tests.
type MemoryLookup struct {
	documents []string
}

// NewMemoryLookup indexes the given documents.
func NewMemoryLookup(documents []string) *MemoryLookup {
	return &MemoryLookup{documents: append([]string(nil), documents...)}
}

func (s *MemoryLookup) Retrieve(ctx context.Context, query string, k int) (string, error) {
	if len(s.documents) == 0 {
		return NoKnowledgeBase, nil
	}
	if k <= 0 {
		k = 3
	}

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		index int
		score int
	}
	results := make([]scored, 0, len(s.documents))
	for i, doc := range s.documents {
		lower := strings.ToLower(doc)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		results = append(results, scored{index: i, score: score})
	}
	// Stable ranking: score descending, original order as tie-break
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}
	chunks := make([]string, 0, k)
	for _, result := range results[:k] {
		chunks = append(chunks, s.documents[result.index])
	}
	return strings.Join(chunks, "\n\n"), nil
}
