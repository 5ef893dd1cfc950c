// Package models defines the workflow state record and the delta/merge
// contract used by the orchestrator.
package models

// WorkflowState is the single state record threaded through every node of
// one run. It is created fresh per request and discarded after the result
// is extracted. Nodes never mutate it directly; they return a Delta which
// the orchestrator merges.
type WorkflowState struct {
	Conversation           []Message
	RawInput               string
	RequiresClarification  bool
	ClarificationQuestions []string
	ParsedInput            ParsedInput
	Constraints            Constraints
	Intent                 string
	IntentConfidence       float64
	IntentSource           string
	UserIntentOverride     string
	ToneParams             ToneParams
	ToneSource             string
	TemplateID             string
	TemplatePlan           *TemplatePlan
	Draft                  string
	PersonalizedDraft      string
	UserID                 string
	UserContext            map[string]any
	MemoryUpdates          map[string]any
	ValidationReport       ValidationReport
	IsValid                bool
	RetryCount             int
}

// FinalDraft returns the personalized draft when set, else the base draft.
func (s WorkflowState) FinalDraft() string {
	if s.PersonalizedDraft != "" {
		return s.PersonalizedDraft
	}
	return s.Draft
}

// Delta is a partial-state update returned by a node. Nil pointer fields
// leave the corresponding state field untouched; Messages are appended to
// the conversation record.
type Delta struct {
	Messages               []Message
	RequiresClarification  *bool
	ClarificationQuestions []string
	ParsedInput            *ParsedInput
	Constraints            *Constraints
	Intent                 *string
	IntentConfidence       *float64
	IntentSource           *string
	ToneParams             *ToneParams
	ToneSource             *string
	TemplateID             *string
	TemplatePlan           *TemplatePlan
	Draft                  *string
	PersonalizedDraft      *string
	UserContext            map[string]any
	MemoryUpdates          map[string]any
	ValidationReport       *ValidationReport
	IsValid                *bool
	RetryCount             *int
}

// Merge applies a delta to a state snapshot and returns the new state.
// It is a pure function: the input state is not modified.
func Merge(s WorkflowState, d Delta) WorkflowState {
	out := s
	if len(d.Messages) > 0 {
		out.Conversation = append(append([]Message(nil), s.Conversation...), d.Messages...)
	}
	if d.RequiresClarification != nil {
		out.RequiresClarification = *d.RequiresClarification
	}
	if d.ClarificationQuestions != nil {
		out.ClarificationQuestions = d.ClarificationQuestions
	}
	if d.ParsedInput != nil {
		out.ParsedInput = *d.ParsedInput
	}
	if d.Constraints != nil {
		out.Constraints = *d.Constraints
	}
	if d.Intent != nil {
		out.Intent = *d.Intent
	}
	if d.IntentConfidence != nil {
		out.IntentConfidence = *d.IntentConfidence
	}
	if d.IntentSource != nil {
		out.IntentSource = *d.IntentSource
	}
	if d.ToneParams != nil {
		out.ToneParams = *d.ToneParams
	}
	if d.ToneSource != nil {
		out.ToneSource = *d.ToneSource
	}
	if d.TemplateID != nil {
		out.TemplateID = *d.TemplateID
	}
	if d.TemplatePlan != nil {
		out.TemplatePlan = d.TemplatePlan
	}
	if d.Draft != nil {
		out.Draft = *d.Draft
	}
	if d.PersonalizedDraft != nil {
		out.PersonalizedDraft = *d.PersonalizedDraft
	}
	if d.UserContext != nil {
		out.UserContext = d.UserContext
	}
	if d.MemoryUpdates != nil {
		out.MemoryUpdates = d.MemoryUpdates
	}
	if d.ValidationReport != nil {
		out.ValidationReport = *d.ValidationReport
	}
	if d.IsValid != nil {
		out.IsValid = *d.IsValid
	}
	if d.RetryCount != nil {
		out.RetryCount = *d.RetryCount
	}
	return out
}

// Pointer helpers for building deltas.

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
