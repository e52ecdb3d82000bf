package nodes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	completion, err := services.NewOfflineCompletion(nil)
	require.NoError(t, err)
	return Dependencies{
		Completion: completion,
		Lookup: services.NewMemoryLookup([]string{
			"Brand tone of voice: confident, plain language, no exclamation marks.",
			"Forbidden words: synergy, disrupt, revolutionary.",
			"Product update emails lead with the customer benefit.",
		}),
		Publishing: services.NewMemoryPublisher(),
		Safety:     services.NewPassthroughSafety(),
	}
}

// apply runs a node against the state and merges its update back, enforcing
// the node's declared writable fields the same way the engine does.
func apply(t *testing.T, node campaign.Node, state *campaign.WorkflowState) {
	t.Helper()
	update, err := node.Execute(context.Background(), state.Clone())
	require.NoError(t, err)
	require.NoError(t, campaign.Merge(state, update, node.Writes()))
}

func TestRouterNode(t *testing.T) {
	node := NewRouterNode(testDeps(t))
	require.Equal(t, Router, node.Name())

	t.Run("factual goal", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		apply(t, node, state)
		assert.Equal(t, campaign.IntentFactual, state.Intent)
		assert.Equal(t, "Intent: Factual", state.LastTraceSegment())
	})

	t.Run("conversational goal", func(t *testing.T) {
		state := campaign.NewWorkflowState("hello there, how are you today")
		apply(t, node, state)
		assert.Equal(t, campaign.IntentChitChat, state.Intent)
	})

	t.Run("ambiguous goal", func(t *testing.T) {
		state := campaign.NewWorkflowState("marketing stuff")
		apply(t, node, state)
		assert.Equal(t, campaign.IntentClarificationNeeded, state.Intent)
	})
}

func TestPlannerNode(t *testing.T) {
	node := NewPlannerNode(testDeps(t))
	state := campaign.NewWorkflowState("Launch a product update email campaign")
	apply(t, node, state)

	require.Equal(t, []string{"Email", "LinkedIn Post", "Blog Post"}, state.Plan)
	assert.Equal(t, "Plan: Email, LinkedIn Post, Blog Post", state.LastTraceSegment())
}

func TestRetrieverNode(t *testing.T) {
	node := NewRetrieverNode(testDeps(t))

	t.Run("selects first pending asset", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "done"}
		apply(t, node, state)

		assert.Equal(t, "Blog Post", state.CurrentAsset)
		assert.NotEmpty(t, state.RetrievedContext)
	})

	t.Run("resets retry count when the asset changes", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "done"}
		state.CurrentAsset = "Email"
		state.RetryCount = 1
		apply(t, node, state)

		assert.Equal(t, "Blog Post", state.CurrentAsset)
		assert.Equal(t, 0, state.RetryCount)
	})

	t.Run("fails with nothing pending", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		state.Drafts = map[string]string{"Email": "done"}
		_, err := node.Execute(context.Background(), state)
		require.Error(t, err)
	})
}

func TestRetrievalGraderNode(t *testing.T) {
	node := NewRetrievalGraderNode(testDeps(t))
	state := campaign.NewWorkflowState("Launch a product update email campaign")
	state.RetrievedContext = "Product update emails lead with the customer benefit."
	apply(t, node, state)

	assert.Equal(t, "Retrieval Grade: yes", state.LastTraceSegment())
}

func TestQueryRewriterNode(t *testing.T) {
	t.Run("before drafting", func(t *testing.T) {
		node := NewQueryRewriterNode(testDeps(t))
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		state.CurrentAsset = "Email"
		apply(t, node, state)

		assert.Equal(t, 1, state.RetryCount)
		assert.Contains(t, state.Goal, "(focus: Email)")
	})

	t.Run("discards an ungrounded draft", func(t *testing.T) {
		node := NewQueryRewriterNode(testDeps(t))
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.CurrentAsset = "Email"
		state.Drafts = map[string]string{"Email": "ungrounded draft"}
		apply(t, node, state)

		assert.Equal(t, 1, state.RetryCount)
		assert.NotContains(t, state.Drafts, "Email")
		assert.Equal(t, []string{"Email", "Blog Post"}, state.PendingAssets())
	})
}

func TestWriterNode(t *testing.T) {
	node := NewWriterNode(testDeps(t))

	t.Run("fresh draft", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		state.CurrentAsset = "Email"
		state.RetrievedContext = "guidelines"
		apply(t, node, state)

		require.Contains(t, state.Drafts, "Email")
		assert.NotEmpty(t, state.Drafts["Email"])
		assert.Equal(t, campaign.DraftPending, state.DraftStatus["Email"])
		assert.Equal(t, "Drafted Email", state.LastTraceSegment())
	})

	t.Run("revision uses the feedback", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		state.CurrentAsset = "Email"
		state.RetrievedContext = "guidelines"
		state.UserFeedback = map[string]string{"Email": "Mention the new dashboard."}
		state.DraftStatus = map[string]campaign.DraftStatus{"Email": campaign.DraftNeedsRevision}
		apply(t, node, state)

		assert.Contains(t, state.Drafts["Email"], "Mention the new dashboard.")
		assert.Equal(t, campaign.DraftPending, state.DraftStatus["Email"])
		assert.Equal(t, "Revised Email from feedback", state.LastTraceSegment())
	})

	t.Run("notes safety modifications", func(t *testing.T) {
		deps := testDeps(t)
		deps.Safety = services.NewWordFilterSafety([]string{"revolutionary"}, "[removed]")
		deps.Completion = services.CompletionFunc(func(ctx context.Context, templateID string, vars map[string]any) (string, error) {
			return "A revolutionary product update.", nil
		})
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		state.CurrentAsset = "Email"
		apply(t, NewWriterNode(deps), state)

		assert.Equal(t, "A [removed] product update.", state.Drafts["Email"])
		assert.Contains(t, state.LastTraceSegment(), "content safety modified the draft")
	})

	t.Run("fails without a current asset", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		_, err := node.Execute(context.Background(), state)
		require.Error(t, err)
	})
}

func TestHallucinationGraderNode(t *testing.T) {
	node := NewHallucinationGraderNode(testDeps(t))
	state := campaign.NewWorkflowState("Launch a product update email campaign")
	state.Plan = []string{"Email"}
	state.CurrentAsset = "Email"
	state.Drafts = map[string]string{"Email": "draft"}
	state.RetrievedContext = "facts"
	apply(t, node, state)

	assert.Equal(t, "Hallucination Grade: yes", state.LastTraceSegment())
}

func TestFeedbackProcessorNode(t *testing.T) {
	t.Run("removes drafts needing revision", func(t *testing.T) {
		node := NewFeedbackProcessorNode(testDeps(t))
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"A", "B"}
		state.Drafts = map[string]string{"A": "x", "B": "y"}
		state.DraftStatus = map[string]campaign.DraftStatus{
			"A": campaign.DraftNeedsRevision,
			"B": campaign.DraftApproved,
		}
		apply(t, node, state)

		assert.Equal(t, map[string]string{"B": "y"}, state.Drafts)
		assert.Equal(t, 1, state.FeedbackIteration)
		assert.Equal(t, "A", state.CurrentAsset)
		assert.Equal(t, campaign.DraftNeedsRevision, state.DraftStatus["A"])
		assert.Equal(t, "Processing feedback for: A", state.LastTraceSegment())
	})

	t.Run("no revisions requested", func(t *testing.T) {
		node := NewFeedbackProcessorNode(testDeps(t))
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"A"}
		state.Drafts = map[string]string{"A": "x"}
		apply(t, node, state)

		assert.Equal(t, map[string]string{"A": "x"}, state.Drafts)
		assert.Equal(t, 1, state.FeedbackIteration)
		assert.Equal(t, "No revisions requested", state.LastTraceSegment())
	})

	t.Run("refuses revisions past the iteration cap", func(t *testing.T) {
		deps := testDeps(t)
		deps.MaxFeedbackIterations = 2
		node := NewFeedbackProcessorNode(deps)
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"A"}
		state.Drafts = map[string]string{"A": "x"}
		state.DraftStatus = map[string]campaign.DraftStatus{"A": campaign.DraftNeedsRevision}
		state.FeedbackIteration = 2
		apply(t, node, state)

		assert.Equal(t, map[string]string{"A": "x"}, state.Drafts)
		assert.Equal(t, 2, state.FeedbackIteration)
		assert.Equal(t, campaign.DraftApproved, state.DraftStatus["A"])
		require.Len(t, state.Errors, 1)
		assert.Contains(t, state.Errors[0], campaign.ErrFeedbackLimitExceeded.Error())
	})
}

func TestReviewerNode(t *testing.T) {
	node := NewReviewerNode(testDeps(t))

	t.Run("reviews every draft in plan order", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "x", "Blog Post": "y"}
		apply(t, node, state)

		assert.Contains(t, state.Critique, "**Email Review:**")
		assert.Contains(t, state.Critique, "**Blog Post Review:**")
		assert.Equal(t, "Reviewed 2 drafts", state.LastTraceSegment())
	})

	t.Run("fails with no drafts", func(t *testing.T) {
		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email"}
		_, err := node.Execute(context.Background(), state)
		require.Error(t, err)
	})
}

func TestPublisherNode(t *testing.T) {
	t.Run("publishes drafts in plan order", func(t *testing.T) {
		deps := testDeps(t)
		publisher := services.NewMemoryPublisher()
		deps.Publishing = publisher
		node := NewPublisherNode(deps)

		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "x", "Blog Post": "y"}
		apply(t, node, state)

		require.Len(t, state.PublishResults, 2)
		assert.NotEmpty(t, state.PublishResults["Email"].ID)
		assert.NotEmpty(t, state.PublishResults["Email"].URL)
		assert.Len(t, publisher.Documents(), 2)
		assert.Equal(t, "Published 2 assets", state.LastTraceSegment())
	})

	t.Run("skips assets already published", func(t *testing.T) {
		deps := testDeps(t)
		publisher := services.NewMemoryPublisher()
		deps.Publishing = publisher
		node := NewPublisherNode(deps)

		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "x", "Blog Post": "y"}
		state.PublishResults = map[string]campaign.PublishResult{
			"Email": {ID: "doc-1", URL: "memory://doc-1"},
		}
		apply(t, node, state)

		assert.Equal(t, "doc-1", state.PublishResults["Email"].ID)
		assert.Len(t, publisher.Documents(), 1)
	})

	t.Run("records failures without dropping the rest", func(t *testing.T) {
		deps := testDeps(t)
		deps.Publishing = services.PublishFunc(func(ctx context.Context, title, content string) (string, string, error) {
			if title == "Email" {
				return "", "", errors.New("upstream rejected the document")
			}
			return "doc-2", fmt.Sprintf("memory://%s", title), nil
		})
		node := NewPublisherNode(deps)

		state := campaign.NewWorkflowState("Launch a product update email campaign")
		state.Plan = []string{"Email", "Blog Post"}
		state.Drafts = map[string]string{"Email": "x", "Blog Post": "y"}
		apply(t, node, state)

		assert.NotContains(t, state.PublishResults, "Email")
		assert.Contains(t, state.PublishResults, "Blog Post")
		require.Len(t, state.Errors, 1)
		assert.Contains(t, state.Errors[0], "publish Email")
	})
}

func TestConversationalNodes(t *testing.T) {
	deps := testDeps(t)

	t.Run("chitchat", func(t *testing.T) {
		state := campaign.NewWorkflowState("hello there, how are you today")
		apply(t, NewChitChatNode(deps), state)
		assert.NotEmpty(t, state.Critique)
	})

	t.Run("clarification", func(t *testing.T) {
		state := campaign.NewWorkflowState("marketing stuff")
		apply(t, NewClarificationNode(deps), state)
		assert.NotEmpty(t, state.Critique)
	})
}

func TestParsePlan(t *testing.T) {
	response := "Scratchpad: audience is existing customers, email is primary.\n\n" +
		"- Email\n* LinkedIn Post\n1. Blog Post\n\nThose three cover the launch."
	assert.Equal(t, []string{"Email", "LinkedIn Post", "Blog Post"}, parsePlan(response))
}

func TestParseBinaryGrade(t *testing.T) {
	assert.Equal(t, "yes", parseBinaryGrade("yes"))
	assert.Equal(t, "yes", parseBinaryGrade("Yes, the document is relevant."))
	assert.Equal(t, "no", parseBinaryGrade("no"))
	assert.Equal(t, "no", parseBinaryGrade("No, this is unrelated."))
	assert.Equal(t, "no", parseBinaryGrade("unsure"))
}
