package campaign

import (
	"fmt"
	"slices"
)

// Field identifies one writable field of the WorkflowState. Nodes declare
// up front which fields they may write; the merge rejects updates that touch
// anything else.
type Field string

const (
	FieldGoal              Field = "goal"
	FieldIntent            Field = "intent"
	FieldPlan              Field = "plan"
	FieldDrafts            Field = "drafts"
	FieldCurrentAsset      Field = "current_asset"
	FieldRetrievedContext  Field = "retrieved_context"
	FieldRetryCount        Field = "retry_count"
	FieldCritique          Field = "critique"
	FieldPublishResults    Field = "publish_results"
	FieldUserFeedback      Field = "user_feedback"
	FieldDraftStatus       Field = "draft_status"
	FieldFeedbackIteration Field = "feedback_iteration"
	FieldTrace             Field = "reasoning_trace"
	FieldErrors            Field = "errors"
)

// Update is the partial state delta returned by a node. Unset fields leave
// the state untouched. Map fields merge per key; trace and errors only
// append; scalar fields replace when their pointer is non-nil.
type Update struct {
	Goal              *string
	Intent            *Intent
	Plan              []string
	Drafts            map[string]string
	RemoveDrafts      []string
	CurrentAsset      *string
	RetrievedContext  *string
	RetryCount        *int
	CarryRetryCount   bool // keep the count across a CurrentAsset change
	Critique          *string
	PublishResults    map[string]PublishResult
	UserFeedback      map[string]string
	DraftStatus       map[string]DraftStatus
	FeedbackIteration *int
	AppendTrace       []string
	AppendErrors      []string
}

// Fields returns the set of state fields this update touches.
func (u *Update) Fields() []Field {
	if u == nil {
		return nil
	}
	var fields []Field
	add := func(cond bool, f Field) {
		if cond {
			fields = append(fields, f)
		}
	}
	add(u.Goal != nil, FieldGoal)
	add(u.Intent != nil, FieldIntent)
	add(u.Plan != nil, FieldPlan)
	add(len(u.Drafts) > 0 || len(u.RemoveDrafts) > 0, FieldDrafts)
	add(u.CurrentAsset != nil, FieldCurrentAsset)
	add(u.RetrievedContext != nil, FieldRetrievedContext)
	add(u.RetryCount != nil, FieldRetryCount)
	add(u.Critique != nil, FieldCritique)
	add(len(u.PublishResults) > 0, FieldPublishResults)
	add(len(u.UserFeedback) > 0, FieldUserFeedback)
	add(len(u.DraftStatus) > 0, FieldDraftStatus)
	add(u.FeedbackIteration != nil, FieldFeedbackIteration)
	add(len(u.AppendTrace) > 0, FieldTrace)
	add(len(u.AppendErrors) > 0, FieldErrors)
	return fields
}

// fieldSet is a convenience for membership checks during merge validation.
type fieldSet map[Field]struct{}

func newFieldSet(fields ...Field) fieldSet {
	set := make(fieldSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Merge applies an update to the state in place, enforcing the writable
// field declaration (nil allows every field). RetryCount is scoped to
// CurrentAsset: when the asset changes and the update neither sets the count
// nor carries it over, the count resets to zero.
func Merge(state *WorkflowState, update *Update, declared []Field) error {
	var allowed fieldSet
	if declared != nil {
		allowed = newFieldSet(declared...)
	}
	return merge(state, update, allowed)
}

func merge(state *WorkflowState, update *Update, allowed fieldSet) error {
	if update == nil {
		return nil
	}
	if allowed != nil {
		for _, field := range update.Fields() {
			if _, ok := allowed[field]; !ok {
				return fmt.Errorf("update writes undeclared field %q", field)
			}
		}
	}

	assetChanged := false
	if update.CurrentAsset != nil && *update.CurrentAsset != state.CurrentAsset {
		assetChanged = true
		state.CurrentAsset = *update.CurrentAsset
	}

	if update.Goal != nil {
		state.Goal = *update.Goal
	}
	if update.Intent != nil {
		state.Intent = *update.Intent
	}
	if update.Plan != nil {
		state.Plan = append([]string(nil), update.Plan...)
	}
	if len(update.Drafts) > 0 {
		if state.Drafts == nil {
			state.Drafts = make(map[string]string, len(update.Drafts))
		}
		for asset, content := range update.Drafts {
			if !slices.Contains(state.Plan, asset) {
				return fmt.Errorf("draft %q is not part of the plan", asset)
			}
			state.Drafts[asset] = content
		}
	}
	for _, asset := range update.RemoveDrafts {
		delete(state.Drafts, asset)
	}
	if update.RetrievedContext != nil {
		state.RetrievedContext = *update.RetrievedContext
	}
	switch {
	case update.RetryCount != nil:
		state.RetryCount = *update.RetryCount
	case assetChanged && !update.CarryRetryCount:
		state.RetryCount = 0
	}
	if update.Critique != nil {
		state.Critique = *update.Critique
	}
	if len(update.PublishResults) > 0 {
		if state.PublishResults == nil {
			state.PublishResults = make(map[string]PublishResult, len(update.PublishResults))
		}
		for asset, result := range update.PublishResults {
			state.PublishResults[asset] = result
		}
	}
	if len(update.UserFeedback) > 0 {
		if state.UserFeedback == nil {
			state.UserFeedback = make(map[string]string, len(update.UserFeedback))
		}
		for asset, feedback := range update.UserFeedback {
			state.UserFeedback[asset] = feedback
		}
	}
	if len(update.DraftStatus) > 0 {
		if state.DraftStatus == nil {
			state.DraftStatus = make(map[string]DraftStatus, len(update.DraftStatus))
		}
		for asset, status := range update.DraftStatus {
			state.DraftStatus[asset] = status
		}
	}
	if update.FeedbackIteration != nil {
		state.FeedbackIteration = *update.FeedbackIteration
	}
	state.ReasoningTrace = append(state.ReasoningTrace, update.AppendTrace...)
	state.Errors = append(state.Errors, update.AppendErrors...)
	return nil
}

// Ptr returns a pointer to v. Shorthand for building Updates.
func Ptr[T any](v T) *T {
	return &v
}
