package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		vars        map[string]any
		wantErr     bool
		errContains string
		want        string
	}{
		{
			name:  "plain string without template variables",
			input: "Hello World",
			want:  "Hello World",
		},
		{
			name:  "string with single template variable",
			input: "Hello ${name}",
			vars:  map[string]any{"name": "Alice"},
			want:  "Hello Alice",
		},
		{
			name:  "string with multiple template variables",
			input: "${greeting} ${name}! The answer is ${40 + 2}",
			vars: map[string]any{
				"greeting": "Hello",
				"name":     "Bob",
			},
			want: "Hello Bob! The answer is 42",
		},
		{
			name:  "nested expressions",
			input: "Result: ${1 + (2 * 3)}",
			want:  "Result: 7",
		},
		{
			name:  "expression at start and end",
			input: "${a} middle ${b}",
			vars:  map[string]any{"a": "first", "b": "last"},
			want:  "first middle last",
		},
		{
			name:        "unclosed brace",
			input:       "Hello ${name",
			vars:        map[string]any{"name": "Alice"},
			wantErr:     true,
			errContains: "unclosed template expression",
		},
		{
			name:    "invalid expression inside template",
			input:   "Hello ${1 +}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, err := NewTemplate(NewRisorEngine(DefaultGlobals()), tt.input)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					require.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, template.Raw())

			got, err := template.Render(context.Background(), tt.vars)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateUndefinedVariable(t *testing.T) {
	template, err := NewTemplate(NewRisorEngine(DefaultGlobals()), "Hello ${missing}")
	require.NoError(t, err)

	_, err = template.Render(context.Background(), nil)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	t.Run("template ids", func(t *testing.T) {
		ids := registry.TemplateIDs()
		assert.Equal(t, []string{
			TemplateChitChat,
			TemplateClarification,
			TemplateHallucinationGrader,
			TemplatePlanner,
			TemplateQueryRewriter,
			TemplateRetrievalGrader,
			TemplateReviewer,
			TemplateRouter,
			TemplateWriter,
			TemplateWriterRevision,
		}, ids)
		for _, id := range ids {
			_, ok := registry.Template(id)
			assert.True(t, ok, "template %q not registered", id)
		}
	})

	t.Run("render router", func(t *testing.T) {
		text, err := registry.Render(context.Background(), TemplateRouter,
			map[string]any{"goal": "Launch our new product"})
		require.NoError(t, err)
		assert.Contains(t, text, "User Query: Launch our new product")
		assert.NotContains(t, text, "${")
	})

	t.Run("render writer revision", func(t *testing.T) {
		text, err := registry.Render(context.Background(), TemplateWriterRevision, map[string]any{
			"goal":       "Launch",
			"asset_type": "Email",
			"context":    "Keep it friendly.",
			"feedback":   "Shorter subject line.",
		})
		require.NoError(t, err)
		assert.Contains(t, text, "Asset Type: Email")
		assert.Contains(t, text, "Feedback to address: Shorter subject line.")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := registry.Render(context.Background(), "nope", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown prompt template")
	})
}
