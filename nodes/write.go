package nodes

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/prompt"
)

// NewWriterNode drafts the current asset from the retrieved context. When the
// human reviewer left feedback for the asset, the revision prompt is used
// instead and the feedback is woven in. Output passes the content safety
// check before it is committed, and the draft status returns to pending so a
// revised draft goes back through human review.
func NewWriterNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Writer,
		[]campaign.Field{campaign.FieldDrafts, campaign.FieldDraftStatus, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			asset := state.CurrentAsset
			if asset == "" {
				return nil, fmt.Errorf("no current asset to draft")
			}

			templateID := prompt.TemplateWriter
			vars := map[string]any{
				"goal":       state.Goal,
				"asset_type": asset,
				"context":    state.RetrievedContext,
			}
			if feedback := state.UserFeedback[asset]; feedback != "" {
				templateID = prompt.TemplateWriterRevision
				vars["feedback"] = feedback
			}

			draft, err := deps.Completion.Generate(ctx, templateID, vars)
			if err != nil {
				return nil, fmt.Errorf("drafting %q failed: %w", asset, err)
			}

			validated, modified, err := deps.Safety.Validate(ctx, draft)
			if err != nil {
				return nil, fmt.Errorf("content safety check for %q failed: %w", asset, err)
			}

			trace := fmt.Sprintf("Drafted %s", asset)
			if templateID == prompt.TemplateWriterRevision {
				trace = fmt.Sprintf("Revised %s from feedback", asset)
			}
			if modified {
				trace += " (content safety modified the draft)"
			}
			return &campaign.Update{
				Drafts:      map[string]string{asset: validated},
				DraftStatus: map[string]campaign.DraftStatus{asset: campaign.DraftPending},
				AppendTrace: []string{trace},
			}, nil
		})
}

// NewHallucinationGraderNode grades whether the fresh draft is grounded in
// the retrieved context, recording the verdict on the reasoning trace for the
// router.
func NewHallucinationGraderNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(HallucinationGrader,
		[]campaign.Field{campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			draft := state.Drafts[state.CurrentAsset]
			response, err := deps.Completion.Generate(ctx, prompt.TemplateHallucinationGrader, map[string]any{
				"documents":  state.RetrievedContext,
				"generation": draft,
			})
			if err != nil {
				return nil, fmt.Errorf("hallucination grading failed: %w", err)
			}
			grade := parseBinaryGrade(response)
			return &campaign.Update{
				AppendTrace: []string{hallucinationGradePrefix + grade},
			}, nil
		})
}
