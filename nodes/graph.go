package nodes

import (
	"fmt"

	"github.com/deepnoodle-ai/campaign"
)

// DefaultGraphName names the assembled campaign graph.
const DefaultGraphName = "campaign"

// DefaultInterruptPoints pauses the engine before brand review, so a human
// can inspect and annotate the drafts before the workflow continues.
func DefaultInterruptPoints() []campaign.NodeName {
	return []campaign.NodeName{Reviewer}
}

// GraphOptions configure the campaign graph assembly.
type GraphOptions struct {
	Deps Dependencies

	// Name defaults to DefaultGraphName.
	Name string

	// InterruptBefore defaults to DefaultInterruptPoints(). Pass an empty
	// non-nil slice to run without pauses.
	InterruptBefore []campaign.NodeName
}

// BuildGraph assembles the twelve campaign nodes and their routing tables
// into a validated graph rooted at the intent router.
func BuildGraph(opts GraphOptions) (*campaign.Graph, error) {
	if err := opts.Deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	name := opts.Name
	if name == "" {
		name = DefaultGraphName
	}
	interrupts := opts.InterruptBefore
	if interrupts == nil {
		interrupts = DefaultInterruptPoints()
	}
	maxRetries := opts.Deps.maxRetries()

	return campaign.NewGraph(campaign.GraphOptions{
		Name:  name,
		Entry: Router,
		Nodes: []campaign.Node{
			NewRouterNode(opts.Deps),
			NewPlannerNode(opts.Deps),
			NewRetrieverNode(opts.Deps),
			NewRetrievalGraderNode(opts.Deps),
			NewQueryRewriterNode(opts.Deps),
			NewWriterNode(opts.Deps),
			NewHallucinationGraderNode(opts.Deps),
			NewFeedbackProcessorNode(opts.Deps),
			NewReviewerNode(opts.Deps),
			NewPublisherNode(opts.Deps),
			NewChitChatNode(opts.Deps),
			NewClarificationNode(opts.Deps),
		},
		Routes: map[campaign.NodeName]campaign.Router{
			Router:              AfterRouter,
			Planner:             campaign.StaticRoute(Retriever),
			Retriever:           campaign.StaticRoute(RetrievalGrader),
			RetrievalGrader:     AfterRetrievalGrader(maxRetries),
			QueryRewriter:       campaign.StaticRoute(Retriever),
			Writer:              campaign.StaticRoute(HallucinationGrader),
			HallucinationGrader: AfterHallucinationGrader(maxRetries),
			FeedbackProcessor:   AfterFeedbackProcessor,
			Reviewer:            campaign.StaticRoute(Publisher),
			Publisher:           campaign.TerminalRoute(),
			ChitChat:            campaign.TerminalRoute(),
			Clarification:       campaign.TerminalRoute(),
		},
		InterruptBefore: interrupts,
	})
}
