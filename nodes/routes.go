package nodes

import (
	"strings"

	"github.com/deepnoodle-ai/campaign"
)

// The conditional routing tables. Each is a pure function of the state;
// branches are evaluated top to bottom and the first match wins.

// AfterRouter dispatches conversational intents away from the content
// pipeline; everything else goes to the planner.
func AfterRouter(state *campaign.WorkflowState) campaign.RouteDecision {
	switch state.Intent {
	case campaign.IntentChitChat:
		return campaign.Goto(ChitChat)
	case campaign.IntentClarificationNeeded:
		return campaign.Goto(Clarification)
	default:
		return campaign.Goto(Planner)
	}
}

// AfterRetrievalGrader sends relevant context to the writer. An irrelevant
// verdict earns one pass through the query rewriter; after that the verdict
// is overridden and the writer drafts from what it has, favouring forward
// progress over perfect grounding.
func AfterRetrievalGrader(maxRetries int) campaign.Router {
	return func(state *campaign.WorkflowState) campaign.RouteDecision {
		if strings.HasSuffix(state.Trace(), retrievalGradePrefix+"yes") {
			return campaign.Goto(Writer)
		}
		if state.RetryCount < maxRetries {
			return campaign.Goto(QueryRewriter)
		}
		return campaign.Goto(Writer)
	}
}

// AfterHallucinationGrader reruns retrieval once on an ungrounded draft, then
// advances: to the retriever while plan assets remain undrafted, and to the
// feedback processor once every asset has a draft. Only the most recent
// verdict counts; stale grades from earlier assets are ignored.
func AfterHallucinationGrader(maxRetries int) campaign.Router {
	return func(state *campaign.WorkflowState) campaign.RouteDecision {
		verdict, ok := state.LastTraceWithPrefix(hallucinationGradePrefix)
		if ok && verdict == hallucinationGradePrefix+"no" && state.RetryCount < maxRetries {
			return campaign.Goto(QueryRewriter)
		}
		if len(state.Drafts) < len(state.Plan) {
			return campaign.Goto(Retriever)
		}
		return campaign.Goto(FeedbackProcessor)
	}
}

// AfterFeedbackProcessor re-enters the drafting loop while any draft is
// marked needs_revision; otherwise the drafts go to brand review.
func AfterFeedbackProcessor(state *campaign.WorkflowState) campaign.RouteDecision {
	if len(state.AssetsNeedingRevision()) > 0 {
		return campaign.Goto(Retriever)
	}
	return campaign.Goto(Reviewer)
}
