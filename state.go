package campaign

import (
	"strings"
)

// Intent is the routing classification assigned to a campaign goal.
type Intent string

const (
	IntentUnknown             Intent = ""
	IntentFactual             Intent = "Factual"
	IntentAnalytical          Intent = "Analytical"
	IntentChitChat            Intent = "ChitChat"
	IntentClarificationNeeded Intent = "ClarificationNeeded"
)

// DraftStatus tracks where a single asset draft is in the human review cycle.
type DraftStatus string

const (
	DraftPending       DraftStatus = "pending"
	DraftApproved      DraftStatus = "approved"
	DraftNeedsRevision DraftStatus = "needs_revision"
)

// PublishResult records the outcome of publishing one asset.
type PublishResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WorkflowState is the single record threaded through a session's execution.
// Nodes never mutate it directly; they return an Update that the engine
// merges. The struct is fully JSON serializable for checkpointing.
type WorkflowState struct {
	Goal              string                   `json:"goal"`
	Intent            Intent                   `json:"intent,omitempty"`
	Plan              []string                 `json:"plan,omitempty"`
	Drafts            map[string]string        `json:"drafts,omitempty"`
	CurrentAsset      string                   `json:"current_asset,omitempty"`
	RetrievedContext  string                   `json:"retrieved_context,omitempty"`
	RetryCount        int                      `json:"retry_count"`
	Critique          string                   `json:"critique,omitempty"`
	PublishResults    map[string]PublishResult `json:"publish_results,omitempty"`
	UserFeedback      map[string]string        `json:"user_feedback,omitempty"`
	DraftStatus       map[string]DraftStatus   `json:"draft_status,omitempty"`
	FeedbackIteration int                      `json:"feedback_iteration"`
	ReasoningTrace    []string                 `json:"reasoning_trace,omitempty"`
	Errors            []string                 `json:"errors,omitempty"`
}

// NewWorkflowState creates the initial state for a session.
func NewWorkflowState(goal string) *WorkflowState {
	return &WorkflowState{Goal: goal}
}

// Clone returns a deep copy of the state. The engine clones before every
// node execution so a failed node cannot leave partial writes behind.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Plan = append([]string(nil), s.Plan...)
	clone.ReasoningTrace = append([]string(nil), s.ReasoningTrace...)
	clone.Errors = append([]string(nil), s.Errors...)
	clone.Drafts = copyStringMap(s.Drafts)
	clone.UserFeedback = copyStringMap(s.UserFeedback)
	if s.DraftStatus != nil {
		clone.DraftStatus = make(map[string]DraftStatus, len(s.DraftStatus))
		for k, v := range s.DraftStatus {
			clone.DraftStatus[k] = v
		}
	}
	if s.PublishResults != nil {
		clone.PublishResults = make(map[string]PublishResult, len(s.PublishResults))
		for k, v := range s.PublishResults {
			clone.PublishResults[k] = v
		}
	}
	return &clone
}

// Trace returns the reasoning trace as a single newline-joined log.
func (s *WorkflowState) Trace() string {
	return strings.Join(s.ReasoningTrace, "\n")
}

// LastTraceSegment returns the most recent trace entry, or "" when empty.
func (s *WorkflowState) LastTraceSegment() string {
	if len(s.ReasoningTrace) == 0 {
		return ""
	}
	return s.ReasoningTrace[len(s.ReasoningTrace)-1]
}

// LastTraceWithPrefix scans the trace from the end for the most recent
// segment starting with prefix. Grader verdicts are looked up this way so a
// stale verdict from an earlier asset cannot mask a later one.
func (s *WorkflowState) LastTraceWithPrefix(prefix string) (string, bool) {
	for i := len(s.ReasoningTrace) - 1; i >= 0; i-- {
		if strings.HasPrefix(s.ReasoningTrace[i], prefix) {
			return s.ReasoningTrace[i], true
		}
	}
	return "", false
}

// PendingAssets returns the plan entries that do not yet have a draft, in
// plan order.
func (s *WorkflowState) PendingAssets() []string {
	var pending []string
	for _, asset := range s.Plan {
		if _, ok := s.Drafts[asset]; !ok {
			pending = append(pending, asset)
		}
	}
	return pending
}

// AssetsNeedingRevision returns the assets marked needs_revision, in plan
// order so routing is deterministic.
func (s *WorkflowState) AssetsNeedingRevision() []string {
	var assets []string
	for _, asset := range s.Plan {
		if s.DraftStatus[asset] == DraftNeedsRevision {
			assets = append(assets, asset)
		}
	}
	return assets
}

// Mutation is the externally-writable surface applied on resume. Callers
// inject human review decisions before execution continues; nothing else in
// the state can be modified from outside.
type Mutation struct {
	Goal         string                 `json:"goal,omitempty"`
	DraftStatus  map[string]DraftStatus `json:"draft_status,omitempty"`
	UserFeedback map[string]string      `json:"user_feedback,omitempty"`
}

// Apply merges the mutation into the state.
func (m *Mutation) Apply(s *WorkflowState) {
	if m == nil {
		return
	}
	if m.Goal != "" {
		s.Goal = m.Goal
	}
	if len(m.DraftStatus) > 0 && s.DraftStatus == nil {
		s.DraftStatus = make(map[string]DraftStatus, len(m.DraftStatus))
	}
	for asset, status := range m.DraftStatus {
		s.DraftStatus[asset] = status
	}
	if len(m.UserFeedback) > 0 && s.UserFeedback == nil {
		s.UserFeedback = make(map[string]string, len(m.UserFeedback))
	}
	for asset, feedback := range m.UserFeedback {
		s.UserFeedback[asset] = feedback
	}
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
