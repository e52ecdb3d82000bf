// Package nodes implements the campaign content workflow: the units of work
// that classify a goal, plan assets, retrieve grounding context, draft and
// grade content, process human feedback, review for brand compliance, and
// publish. The routing tables joining them live in routes.go and the
// assembled graph in graph.go.
package nodes

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/services"
)

// Node names in the campaign graph.
const (
	Router              campaign.NodeName = "router"
	Planner             campaign.NodeName = "planner"
	Retriever           campaign.NodeName = "retriever"
	RetrievalGrader     campaign.NodeName = "retrieval_grader"
	QueryRewriter       campaign.NodeName = "query_rewriter"
	Writer              campaign.NodeName = "writer"
	HallucinationGrader campaign.NodeName = "hallucination_grader"
	FeedbackProcessor   campaign.NodeName = "feedback_processor"
	Reviewer            campaign.NodeName = "reviewer"
	Publisher           campaign.NodeName = "publisher"
	ChitChat            campaign.NodeName = "chitchat"
	Clarification       campaign.NodeName = "clarification"
)

// Trace prefixes the routing tables key off.
const (
	retrievalGradePrefix     = "Retrieval Grade: "
	hallucinationGradePrefix = "Hallucination Grade: "
)

// Dependencies carries the external capabilities and tuning knobs the nodes
// need. Completion, Lookup, Publishing, and Safety are required; the zero
// values of the remaining fields select the defaults.
type Dependencies struct {
	Completion services.CompletionService
	Lookup     services.LookupService
	Publishing services.PublishingService
	Safety     services.ContentSafetyCheck

	// MaxRetries bounds how often a negative grader verdict may send an
	// asset through the query rewriter. Defaults to 1.
	MaxRetries int

	// MaxFeedbackIterations caps the human revision loop. Zero means
	// unbounded, matching the original design.
	MaxFeedbackIterations int

	// RetrieveK is how many document chunks a lookup returns. Defaults
	// to 3.
	RetrieveK int
}

func (d *Dependencies) validate() error {
	if d.Completion == nil {
		return fmt.Errorf("completion service is required")
	}
	if d.Lookup == nil {
		return fmt.Errorf("lookup service is required")
	}
	if d.Publishing == nil {
		return fmt.Errorf("publishing service is required")
	}
	if d.Safety == nil {
		return fmt.Errorf("content safety check is required")
	}
	return nil
}

func (d *Dependencies) maxRetries() int {
	if d.MaxRetries <= 0 {
		return 1
	}
	return d.MaxRetries
}

func (d *Dependencies) retrieveK() int {
	if d.RetrieveK <= 0 {
		return 3
	}
	return d.RetrieveK
}

// parseBinaryGrade normalizes a grader response to yes/no. Anything that is
// not recognizably "yes" counts as "no".
func parseBinaryGrade(response string) string {
	lower := strings.ToLower(response)
	if strings.Contains(lower, "yes") && !strings.Contains(lower, "no") {
		return "yes"
	}
	if strings.HasPrefix(strings.TrimSpace(lower), "yes") {
		return "yes"
	}
	return "no"
}

// parseIntent extracts the intent category from a classifier response.
// Responses that name no category default to Factual so the workflow keeps
// moving.
func parseIntent(response string) campaign.Intent {
	for _, intent := range []campaign.Intent{
		campaign.IntentClarificationNeeded,
		campaign.IntentChitChat,
		campaign.IntentAnalytical,
		campaign.IntentFactual,
	} {
		if strings.Contains(response, string(intent)) {
			return intent
		}
	}
	return campaign.IntentFactual
}

// parsePlan extracts asset names from a planner response. Only list items
// count; scratchpad prose around the list is ignored.
func parsePlan(response string) []string {
	var assets []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		name, ok := stripListMarker(line)
		if !ok || name == "" {
			continue
		}
		assets = append(assets, name)
	}
	return assets
}

func stripListMarker(line string) (string, bool) {
	for _, bullet := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, bullet); ok {
			return strings.TrimSpace(rest), true
		}
	}
	// Numbered items like "1. Email" or "12. Blog Post"
	if i := strings.Index(line, ". "); i > 0 && i <= 2 {
		digits := line[:i]
		if strings.Trim(digits, "0123456789") == "" {
			return strings.TrimSpace(line[i+2:]), true
		}
	}
	return "", false
}
