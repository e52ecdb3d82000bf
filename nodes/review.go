package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/prompt"
)

// brandGuidelinesQuery is what the reviewer looks up before judging drafts.
const brandGuidelinesQuery = "brand tone of voice and forbidden words"

// NewFeedbackProcessorNode applies the human review decisions injected on
// resume. Drafts marked needs_revision are removed so the pipeline regenerates
// them; their status stays needs_revision until the writer replaces the draft.
// When a feedback iteration cap is configured and the next round would exceed
// it, the revision request is refused: the marked drafts are kept, flipped to
// approved, and the refusal is recorded in the error log.
func NewFeedbackProcessorNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(FeedbackProcessor,
		[]campaign.Field{
			campaign.FieldDrafts,
			campaign.FieldDraftStatus,
			campaign.FieldCurrentAsset,
			campaign.FieldFeedbackIteration,
			campaign.FieldErrors,
			campaign.FieldTrace,
		},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			revise := state.AssetsNeedingRevision()
			if len(revise) == 0 {
				return &campaign.Update{
					FeedbackIteration: campaign.Ptr(state.FeedbackIteration + 1),
					AppendTrace:       []string{"No revisions requested"},
				}, nil
			}

			next := state.FeedbackIteration + 1
			if limit := deps.MaxFeedbackIterations; limit > 0 && next > limit {
				approved := make(map[string]campaign.DraftStatus, len(revise))
				for _, asset := range revise {
					approved[asset] = campaign.DraftApproved
				}
				return &campaign.Update{
					DraftStatus: approved,
					AppendErrors: []string{fmt.Sprintf("%s: refusing revision of %s after %d iterations",
						campaign.ErrFeedbackLimitExceeded, strings.Join(revise, ", "), state.FeedbackIteration)},
					AppendTrace: []string{"Feedback limit reached; keeping current drafts"},
				}, nil
			}

			return &campaign.Update{
				RemoveDrafts:      revise,
				CurrentAsset:      campaign.Ptr(revise[0]),
				FeedbackIteration: campaign.Ptr(next),
				AppendTrace:       []string{fmt.Sprintf("Processing feedback for: %s", strings.Join(revise, ", "))},
			}, nil
		})
}

// NewReviewerNode checks every draft against the brand guidelines and
// assembles a combined critique. The engine typically pauses before this node
// so a human can inspect the drafts first.
func NewReviewerNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Reviewer,
		[]campaign.Field{campaign.FieldCritique, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			guidelines, err := deps.Lookup.Retrieve(ctx, brandGuidelinesQuery, deps.retrieveK())
			if err != nil {
				return nil, fmt.Errorf("guideline lookup failed: %w", err)
			}

			var critique strings.Builder
			reviewed := 0
			for _, asset := range state.Plan {
				content, ok := state.Drafts[asset]
				if !ok {
					continue
				}
				review, err := deps.Completion.Generate(ctx, prompt.TemplateReviewer, map[string]any{
					"guidelines": guidelines,
					"asset":      asset,
					"content":    content,
				})
				if err != nil {
					return nil, fmt.Errorf("review of %q failed: %w", asset, err)
				}
				fmt.Fprintf(&critique, "**%s Review:**\n%s\n\n", asset, review)
				reviewed++
			}
			if reviewed == 0 {
				return nil, fmt.Errorf("no drafts to review")
			}
			return &campaign.Update{
				Critique:    campaign.Ptr(strings.TrimSuffix(critique.String(), "\n")),
				AppendTrace: []string{fmt.Sprintf("Reviewed %d drafts", reviewed)},
			}, nil
		})
}
