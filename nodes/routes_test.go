package nodes

import (
	"testing"

	"github.com/deepnoodle-ai/campaign"
	"github.com/stretchr/testify/assert"
)

func TestAfterRouter(t *testing.T) {
	state := campaign.NewWorkflowState("goal")

	state.Intent = campaign.IntentChitChat
	assert.Equal(t, ChitChat, AfterRouter(state).Target())

	state.Intent = campaign.IntentClarificationNeeded
	assert.Equal(t, Clarification, AfterRouter(state).Target())

	state.Intent = campaign.IntentFactual
	assert.Equal(t, Planner, AfterRouter(state).Target())

	state.Intent = campaign.IntentAnalytical
	assert.Equal(t, Planner, AfterRouter(state).Target())
}

func TestAfterRetrievalGrader(t *testing.T) {
	route := AfterRetrievalGrader(1)

	t.Run("relevant context goes to the writer", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.ReasoningTrace = []string{"Retrieval Grade: yes"}
		assert.Equal(t, Writer, route(state).Target())
	})

	t.Run("first negative verdict earns a rewrite", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.ReasoningTrace = []string{"Retrieval Grade: no"}
		assert.Equal(t, QueryRewriter, route(state).Target())
	})

	t.Run("exhausted retries override the verdict", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.ReasoningTrace = []string{"Retrieval Grade: no"}
		state.RetryCount = 1
		assert.Equal(t, Writer, route(state).Target())
	})
}

func TestAfterHallucinationGrader(t *testing.T) {
	route := AfterHallucinationGrader(1)

	t.Run("ungrounded draft re-enters retrieval", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.Plan = []string{"Email"}
		state.Drafts = map[string]string{"Email": "x"}
		state.ReasoningTrace = []string{"Hallucination Grade: no"}
		assert.Equal(t, QueryRewriter, route(state).Target())
	})

	t.Run("exhausted retries advance to the next asset", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "x"}
		state.ReasoningTrace = []string{"Hallucination Grade: no"}
		state.RetryCount = 1
		assert.Equal(t, Retriever, route(state).Target())
	})

	t.Run("complete plan advances to feedback", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.Plan = []string{"Email"}
		state.Drafts = map[string]string{"Email": "x"}
		state.ReasoningTrace = []string{"Hallucination Grade: yes"}
		assert.Equal(t, FeedbackProcessor, route(state).Target())
	})

	t.Run("only the latest verdict counts", func(t *testing.T) {
		state := campaign.NewWorkflowState("goal")
		state.Plan = []string{"Email"}
		state.Drafts = map[string]string{"Email": "x"}
		state.ReasoningTrace = []string{
			"Hallucination Grade: no",
			"Rewrote query for Email (retry 1)",
			"Hallucination Grade: yes",
		}
		assert.Equal(t, FeedbackProcessor, route(state).Target())
	})
}

func TestAfterFeedbackProcessor(t *testing.T) {
	state := campaign.NewWorkflowState("goal")
	state.Plan = []string{"A", "B"}
	state.DraftStatus = map[string]campaign.DraftStatus{
		"A": campaign.DraftNeedsRevision,
		"B": campaign.DraftApproved,
	}
	assert.Equal(t, Retriever, AfterFeedbackProcessor(state).Target())

	state.DraftStatus["A"] = campaign.DraftApproved
	assert.Equal(t, Reviewer, AfterFeedbackProcessor(state).Target())
}
