package nodes

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/campaign"
)

// NewPublisherNode publishes every draft in plan order. A failed publish is
// recorded in the error log and does not produce a publish result for that
// asset; the remaining assets are still attempted.
func NewPublisherNode(deps Dependencies) campaign.Node {
	return campaign.NewFuncNode(Publisher,
		[]campaign.Field{campaign.FieldPublishResults, campaign.FieldErrors, campaign.FieldTrace},
		func(ctx context.Context, state *campaign.WorkflowState) (*campaign.Update, error) {
			update := &campaign.Update{
				PublishResults: map[string]campaign.PublishResult{},
			}
			published := 0
			for _, asset := range state.Plan {
				content, ok := state.Drafts[asset]
				if !ok {
					continue
				}
				if _, done := state.PublishResults[asset]; done {
					// Already published on a previous attempt; a re-executed
					// node must not publish the same asset twice.
					continue
				}
				id, url, err := deps.Publishing.Publish(ctx, asset, content)
				if err != nil {
					update.AppendErrors = append(update.AppendErrors,
						fmt.Sprintf("publish %s: %v", asset, err))
					continue
				}
				update.PublishResults[asset] = campaign.PublishResult{ID: id, URL: url}
				published++
			}
			update.AppendTrace = []string{fmt.Sprintf("Published %d assets", published)}
			return update, nil
		})
}
