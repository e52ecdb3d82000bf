package services

import (
	"context"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/campaign/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineCompletionRouter(t *testing.T) {
	completion, err := NewOfflineCompletion(nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		goal string
		want string
	}{
		{"greeting", "Hello there!", "ChitChat"},
		{"gratitude", "thanks for the help yesterday", "ChitChat"},
		{"too short", "new campaign", "ClarificationNeeded"},
		{"comparison", "Compare our pricing page against the top three competitors", "Analytical"},
		{"strategy", "Draft a go-to-market strategy for the spring launch", "Analytical"},
		{"plain goal", "Launch the new app to small business owners", "Factual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := completion.Generate(ctx, prompt.TemplateRouter, map[string]any{"goal": tt.goal})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOfflineCompletionTemplates(t *testing.T) {
	completion, err := NewOfflineCompletion(nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("planner returns a bulleted plan", func(t *testing.T) {
		got, err := completion.Generate(ctx, prompt.TemplatePlanner,
			map[string]any{"goal": "Launch the new app"})
		require.NoError(t, err)
		for _, line := range strings.Split(got, "\n") {
			assert.True(t, strings.HasPrefix(line, "- "), "line %q is not a list item", line)
		}
	})

	t.Run("writer draft mentions asset and goal", func(t *testing.T) {
		got, err := completion.Generate(ctx, prompt.TemplateWriter, map[string]any{
			"goal":       "Launch the new app",
			"asset_type": "Email",
			"context":    "Friendly tone.",
		})
		require.NoError(t, err)
		assert.Contains(t, got, "Email draft")
		assert.Contains(t, got, "Launch the new app")
		assert.NotContains(t, got, "Revised to address feedback")
	})

	t.Run("revision draft carries the feedback", func(t *testing.T) {
		got, err := completion.Generate(ctx, prompt.TemplateWriterRevision, map[string]any{
			"goal":       "Launch the new app",
			"asset_type": "Email",
			"context":    "Friendly tone.",
			"feedback":   "Shorter subject line.",
		})
		require.NoError(t, err)
		assert.Contains(t, got, "Revised to address feedback: Shorter subject line.")
	})

	t.Run("graders approve", func(t *testing.T) {
		for _, id := range []string{prompt.TemplateRetrievalGrader, prompt.TemplateHallucinationGrader} {
			vars := map[string]any{
				"document": "doc", "question": "q",
				"documents": "docs", "generation": "gen",
			}
			got, err := completion.Generate(ctx, id, vars)
			require.NoError(t, err)
			assert.Equal(t, "yes", got)
		}
	})

	t.Run("query rewriter keeps the goal", func(t *testing.T) {
		got, err := completion.Generate(ctx, prompt.TemplateQueryRewriter,
			map[string]any{"goal": "Launch the app", "asset": "Email"})
		require.NoError(t, err)
		assert.Equal(t, "Launch the app (focus: Email)", got)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := completion.Generate(ctx, "nope", nil)
		require.Error(t, err)
	})
}

func TestMemoryLookup(t *testing.T) {
	ctx := context.Background()
	lookup := NewMemoryLookup([]string{
		"Brand voice: confident and warm, never salesy.",
		"Forbidden words: synergy, disrupt, guru.",
		"Shipping policy: orders ship within two business days.",
	})

	t.Run("ranks matching documents first", func(t *testing.T) {
		got, err := lookup.Retrieve(ctx, "brand voice guidelines", 1)
		require.NoError(t, err)
		assert.Equal(t, "Brand voice: confident and warm, never salesy.", got)
	})

	t.Run("k caps the result count", func(t *testing.T) {
		got, err := lookup.Retrieve(ctx, "brand", 2)
		require.NoError(t, err)
		assert.Len(t, strings.Split(got, "\n\n"), 2)
	})

	t.Run("k larger than the index returns everything", func(t *testing.T) {
		got, err := lookup.Retrieve(ctx, "brand", 10)
		require.NoError(t, err)
		assert.Len(t, strings.Split(got, "\n\n"), 3)
	})

	t.Run("empty index reports missing knowledge base", func(t *testing.T) {
		got, err := NewMemoryLookup(nil).Retrieve(ctx, "anything", 3)
		require.NoError(t, err)
		assert.Equal(t, NoKnowledgeBase, got)
	})

	t.Run("null lookup reports missing knowledge base", func(t *testing.T) {
		got, err := NewNullLookup().Retrieve(ctx, "anything", 3)
		require.NoError(t, err)
		assert.Equal(t, NoKnowledgeBase, got)
	})
}

func TestMemoryPublisher(t *testing.T) {
	publisher := NewMemoryPublisher()
	ctx := context.Background()

	id1, url1, err := publisher.Publish(ctx, "Email", "body one")
	require.NoError(t, err)
	id2, url2, err := publisher.Publish(ctx, "Blog Post", "body two")
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Contains(t, url1, id1)
	assert.Contains(t, url2, id2)

	docs := publisher.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "Email", docs[0].Title)
	assert.Equal(t, "body two", docs[1].Content)

	// Documents returns a copy
	docs[0].Title = "tampered"
	assert.Equal(t, "Email", publisher.Documents()[0].Title)
}

func TestWordFilterSafety(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces forbidden words case-insensitively", func(t *testing.T) {
		filter := NewWordFilterSafety([]string{"synergy", "guru"}, "")
		got, modified, err := filter.Validate(ctx, "Our Synergy guru delivers synergy.")
		require.NoError(t, err)
		assert.True(t, modified)
		assert.Equal(t, "Our [removed] [removed] delivers [removed].", got)
	})

	t.Run("leaves partial matches alone", func(t *testing.T) {
		filter := NewWordFilterSafety([]string{"art"}, "")
		got, modified, err := filter.Validate(ctx, "The artist starts early.")
		require.NoError(t, err)
		assert.False(t, modified)
		assert.Equal(t, "The artist starts early.", got)
	})

	t.Run("custom replacement", func(t *testing.T) {
		filter := NewWordFilterSafety([]string{"disrupt"}, "improve")
		got, modified, err := filter.Validate(ctx, "We disrupt markets.")
		require.NoError(t, err)
		assert.True(t, modified)
		assert.Equal(t, "We improve markets.", got)
	})

	t.Run("passthrough never modifies", func(t *testing.T) {
		got, modified, err := NewPassthroughSafety().Validate(ctx, "anything at all")
		require.NoError(t, err)
		assert.False(t, modified)
		assert.Equal(t, "anything at all", got)
	})
}
