package nodes

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/prompt"
)

// NewRouterNode classifies the campaign goal into an intent category. The
// routing table after this node dispatches conversational intents away from
// the content pipeline.
func NewRouterNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Router,
		[]campaign.Field{campaign.FieldIntent, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplateRouter, map[string]any{
				"goal": state.Goal,
			})
			if err != nil {
				return nil, fmt.Errorf("intent classification failed: %w", err)
			}
			intent := parseIntent(response)
			return &campaign.Update{
				Intent:      campaign.Ptr(intent),
				AppendTrace: []string{fmt.Sprintf("Intent: %s", intent)},
			}, nil
		})
}

// NewChitChatNode answers conversational goals directly, skipping the content
// pipeline entirely.
func NewChitChatNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(ChitChat,
		[]campaign.Field{campaign.FieldCritique, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplateChitChat, map[string]any{
				"goal": state.Goal,
			})
			if err != nil {
				return nil, fmt.Errorf("chitchat response failed: %w", err)
			}
			return &campaign.Update{
				Critique:    campaign.Ptr(response),
				AppendTrace: []string{"Responded conversationally"},
			}, nil
		})
}

// NewClarificationNode asks the user a clarifying question when the goal is
// too ambiguous to plan from.
func NewClarificationNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Clarification,
		[]campaign.Field{campaign.FieldCritique, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplateClarification, map[string]any{
				"goal": state.Goal,
			})
			if err != nil {
				return nil, fmt.Errorf("clarification request failed: %w", err)
			}
			return &campaign.Update{
				Critique:    campaign.Ptr(response),
				AppendTrace: []string{"Requested clarification"},
			}, nil
		})
}
