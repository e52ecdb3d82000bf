package nodes

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/prompt"
)

// NewRetrieverNode selects the next asset to work on and pulls grounding
// context for it from the knowledge base. The retry count is scoped to the
// selected asset; when the asset changes the merge resets it.
func NewRetrieverNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Retriever,
		[]campaign.Field{
			campaign.FieldRetrievedContext,
			campaign.FieldCurrentAsset,
			campaign.FieldRetryCount,
		},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			pending := state.PendingAssets()
			if len(pending) == 0 {
				return nil, fmt.Errorf("no pending assets in plan %v", state.Plan)
			}
			asset := pending[0]
			query := fmt.Sprintf("%s for: %s", asset, state.Goal)
			retrieved, err := deps.Lookup.Retrieve(ctx, query, deps.retrieveK())
			if err != nil {
				return nil, fmt.Errorf("retrieval for %q failed: %w", asset, err)
			}
			return &campaign.Update{
				CurrentAsset:     campaign.Ptr(asset),
				RetrievedContext: campaign.Ptr(retrieved),
			}, nil
		})
}

// NewRetrievalGraderNode grades whether the retrieved context is relevant to
// the goal, recording the verdict on the reasoning trace for the router.
func NewRetrievalGraderNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(RetrievalGrader,
		[]campaign.Field{campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplateRetrievalGrader, map[string]any{
				"document": state.RetrievedContext,
				"question": state.Goal,
			})
			if err != nil {
				return nil, fmt.Errorf("retrieval grading failed: %w", err)
			}
			grade := parseBinaryGrade(response)
			return &campaign.Update{
				AppendTrace: []string{retrievalGradePrefix + grade},
			}, nil
		})
}

// NewQueryRewriterNode rewrites the goal into a more specific search query
// after a negative grader verdict, charging one retry against the current
// asset. When the asset already has a draft the rewrite came from the
// hallucination grader, so the ungrounded draft is discarded; that puts the
// asset back in the pending set and the retriever re-enters retrieval for it
// instead of skipping ahead.
func NewQueryRewriterNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(QueryRewriter,
		[]campaign.Field{campaign.FieldGoal, campaign.FieldRetryCount, campaign.FieldDrafts, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			response, err := deps.Completion.Generate(ctx, prompt.TemplateQueryRewriter, map[string]any{
				"goal":  state.Goal,
				"asset": state.CurrentAsset,
			})
			if err != nil {
				return nil, fmt.Errorf("query rewrite failed: %w", err)
			}
			update := &campaign.Update{
				Goal:        campaign.Ptr(response),
				RetryCount:  campaign.Ptr(state.RetryCount + 1),
				AppendTrace: []string{fmt.Sprintf("Rewrote query for %s (retry %d)", state.CurrentAsset, state.RetryCount+1)},
			}
			if _, drafted := state.Drafts[state.CurrentAsset]; drafted {
				update.RemoveDrafts = []string{state.CurrentAsset}
			}
			return update, nil
		})
}
