package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/prompt"
)

// NewPlannerNode turns the campaign goal into an ordered list of assets to
// produce. An empty plan is a failure, not an empty success, since every
// downstream node assumes at least one asset.
func NewPlannerNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Planner,
		[]campaign.Field{campaign.FieldPlan, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplatePlanner, map[string]any{
				"goal": state.Goal,
			})
			if err != nil {
				return nil, fmt.Errorf("planning failed: %w", err)
			}
			plan := parsePlan(response)
			if len(plan) == 0 {
				return nil, fmt.Errorf("planner produced no assets for goal %q", state.Goal)
			}
			return &campaign.Update{
				Plan:        plan,
				AppendTrace: []string{fmt.Sprintf("Plan: %s", strings.Join(plan, ", "))},
			}, nil
		})
}
