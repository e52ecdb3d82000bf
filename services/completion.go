// Package services defines the external capability interfaces the campaign
// workflow consumes: text completion, knowledge lookup, publishing, and
// content safety. The engine treats all of them as stateless collaborators.
// Offline implementations are provided so the workflow runs deterministically
// without credentials, for local use and for tests.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/campaign/prompt"
)

// Errors a completion backend may report. The workflow does not retry these
// internally; the bounded retry loop in the graph is the only retry policy.
var (
	ErrServiceUnavailable = errors.New("completion service unavailable")
	ErrRateLimited        = errors.New("completion service rate limited")
)

// CompletionService generates text from a named prompt template and its
// variables.
type CompletionService interface {
	Generate(ctx context.Context, templateID string, vars map[string]any) (string, error)
}

// CompletionFunc adapts a function into a CompletionService.
type CompletionFunc func(ctx context.Context, templateID string, vars map[string]any) (string, error)

func (f CompletionFunc) Generate(ctx context.Context, templateID string, vars map[string]any) (string, error) {
	return f(ctx, templateID, vars)
}

// OfflineCompletion is a deterministic CompletionService that renders the
// real prompt templates and derives plausible output from the variables.
// It stands in for a language model during local runs and tests.
type OfflineCompletion struct {
	registry *prompt.Registry
}

// NewOfflineCompletion creates the offline backend. A nil registry compiles
// the built-in prompt set.
func NewOfflineCompletion(registry *prompt.Registry) (*OfflineCompletion, error) {
	if registry == nil {
		var err error
		registry, err = prompt.NewRegistry(nil)
		if err != nil {
			return nil, err
		}
	}
	return &OfflineCompletion{registry: registry}, nil
}

func (s *OfflineCompletion) Generate(ctx context.Context, templateID string, vars map[string]any) (string, error) {
	// Rendering validates the template ID and variables even though the
	// offline backend does not send the prompt anywhere.
	rendered, err := s.registry.Render(ctx, templateID, vars)
	if err != nil {
		return "", err
	}

	switch templateID {
	case prompt.TemplateRouter:
		return classifyIntent(stringVar(vars, "goal")), nil
	case prompt.TemplatePlanner:
		return "- Email\n- LinkedIn Post\n- Blog Post", nil
	case prompt.TemplateWriter, prompt.TemplateWriterRevision:
		return offlineDraft(vars), nil
	case prompt.TemplateReviewer:
		return fmt.Sprintf("Pass. The %s aligns with the brand guidelines; tone and terminology check out.",
			stringVar(vars, "asset")), nil
	case prompt.TemplateRetrievalGrader, prompt.TemplateHallucinationGrader:
		return "yes", nil
	case prompt.TemplateQueryRewriter:
		return fmt.Sprintf("%s (focus: %s)", stringVar(vars, "goal"), stringVar(vars, "asset")), nil
	case prompt.TemplateChitChat:
		return "Happy to chat! When you have a campaign goal in mind, send it over and I'll plan the assets.", nil
	case prompt.TemplateClarification:
		return "Could you share more detail about the audience, channel, and objective for this campaign?", nil
	default:
		// Unknown templates echo their rendered prompt, which keeps the
		// backend usable with caller-supplied template sets.
		return rendered, nil
	}
}

func classifyIntent(goal string) string {
	lower := strings.ToLower(goal)
	switch {
	case containsAny(lower, "hello", "hi ", "hey", "thanks", "how are you"):
		return "ChitChat"
	case strings.TrimSpace(goal) == "" || len(strings.Fields(goal)) < 3:
		return "ClarificationNeeded"
	case containsAny(lower, "compare", "analyze", "analysis", "versus", "strategy"):
		return "Analytical"
	default:
		return "Factual"
	}
}

func offlineDraft(vars map[string]any) string {
	asset := stringVar(vars, "asset_type")
	goal := stringVar(vars, "goal")
	feedback := stringVar(vars, "feedback")
	draft := fmt.Sprintf("%s draft for campaign goal %q.\n\nKey message grounded in the retrieved guidelines, with a clear call to action.", asset, goal)
	if feedback != "" {
		draft += fmt.Sprintf("\n\nRevised to address feedback: %s", feedback)
	}
	return draft
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stringVar(vars map[string]any, key string) string {
	if v, ok := vars[key].(string); ok {
		return v
	}
	return ""
}
