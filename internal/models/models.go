// Package models defines the shared data types for the DraftPipe email
// drafting pipeline: the workflow state threaded through agent nodes, the
// template plan produced by the deterministic plan engine, and the
// validation verdict contract.
package models

import (
	"strings"
	"time"
)

// Message roles used in the per-run conversation record.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the run's conversation record. The record is
// append-only within a run.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Recipient describes the person the email is addressed to. All fields are
// optional; metadata-provided values are authoritative over parsed ones.
type Recipient struct {
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Org          string `json:"org,omitempty"`
	Email        string `json:"email,omitempty"`
}

// IsEmpty reports whether no recipient field is set.
func (r Recipient) IsEmpty() bool {
	return r.Name == "" && r.Role == "" && r.Relationship == "" && r.Org == "" && r.Email == ""
}

// ParsedInput is the structured form of the user's free-text request.
type ParsedInput struct {
	PrimaryRequest string    `json:"primary_request,omitempty"`
	Recipient      Recipient `json:"recipient,omitempty"`
	Context        string    `json:"context,omitempty"`
	Ask            string    `json:"ask,omitempty"`
}

// Constraints captures drafting constraints. MustInclude/MustAvoid are
// mutable across retries via constraint resolution; Extra carries
// passthrough UI/metadata overrides untouched by the pipeline.
type Constraints struct {
	Length      string            `json:"length,omitempty"`
	Format      string            `json:"format,omitempty"`
	Audience    string            `json:"audience,omitempty"`
	Deadline    string            `json:"deadline,omitempty"`
	MustInclude []string          `json:"must_include,omitempty"`
	MustAvoid   []string          `json:"must_avoid,omitempty"`
	UseBullets  bool              `json:"use_bullets,omitempty"`
	BulletCount int               `json:"bullet_count,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy so retry-loop edits never alias prior state.
func (c Constraints) Clone() Constraints {
	out := c
	out.MustInclude = append([]string(nil), c.MustInclude...)
	out.MustAvoid = append([]string(nil), c.MustAvoid...)
	if c.Extra != nil {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ToneParams is the structured tone description produced by the tone
// stylist. Numeric axes are clamped to [0,100], confidence to [0,1].
type ToneParams struct {
	ToneLabel  string  `json:"tone_label,omitempty"`
	Formality  int     `json:"formality"`
	Warmth     int     `json:"warmth"`
	Directness int     `json:"directness"`
	Confidence float64 `json:"confidence"`
}

// Sources for intent and tone decisions.
const (
	SourceUI      = "ui"
	SourceModel   = "model"
	SourceDefault = "default"
)

// Validation statuses.
const (
	ValidationPass    = "PASS"
	ValidationFail    = "FAIL"
	ValidationBlocked = "BLOCKED"
)

// Issue severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ValidationIssue is one finding from the review/validator node.
type ValidationIssue struct {
	Category     string `json:"category,omitempty"`
	Severity     string `json:"severity,omitempty"`
	Detail       string `json:"detail,omitempty"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// ConstraintResolution carries validator-proposed constraint edits applied
// between retries.
type ConstraintResolution struct {
	DropMustInclude   []string `json:"drop_must_include,omitempty"`
	AddMustAvoid      []string `json:"add_must_avoid,omitempty"`
	OverrideToneLabel string   `json:"override_tone_label,omitempty"`
}

// IsZero reports whether the resolution proposes no edits.
func (c ConstraintResolution) IsZero() bool {
	return len(c.DropMustInclude) == 0 && len(c.AddMustAvoid) == 0 && c.OverrideToneLabel == ""
}

// ValidationReport is the structured verdict from the review step.
type ValidationReport struct {
	Status                 string               `json:"status"`
	Summary                string               `json:"summary,omitempty"`
	Issues                 []ValidationIssue    `json:"issues,omitempty"`
	SuggestedEdits         map[string]any       `json:"suggested_edits,omitempty"`
	RevisionInstructions   string               `json:"revision_instructions,omitempty"`
	UserMessage            string               `json:"user_message,omitempty"`
	ConflictingConstraints []string             `json:"conflicting_constraints,omitempty"`
	ConstraintResolution   ConstraintResolution `json:"constraint_resolution,omitempty"`
}

// HasHighSeverityIssue reports whether any issue is high severity,
// case-insensitively.
func (r ValidationReport) HasHighSeverityIssue() bool {
	for _, issue := range r.Issues {
		if strings.EqualFold(strings.TrimSpace(issue.Severity), SeverityHigh) {
			return true
		}
	}
	return false
}

// LengthBudget bounds what the generative drafting step may produce.
type LengthBudget struct {
	TargetWords   int `json:"target_words"`
	MaxWords      int `json:"max_words"`
	MaxParagraphs int `json:"max_paragraphs"`
	MaxBullets    int `json:"max_bullets"`
}

// PlanFormat is the formatting policy block of a template plan.
type PlanFormat struct {
	UseSubject   bool     `json:"use_subject"`
	UseBullets   bool     `json:"use_bullets"`
	MaxBullets   int      `json:"max_bullets"`
	SectionOrder []string `json:"section_order"`
}

// TemplatePlan is the deterministic bundle the draft writer must follow.
// It is produced without any generative call and is read-only input to
// drafting.
type TemplatePlan struct {
	TemplateID       string            `json:"template_id,omitempty"`
	ToneLabel        string            `json:"tone_label"`
	LengthHint       string            `json:"length_hint"`
	LengthBudget     LengthBudget      `json:"length_budget"`
	Format           PlanFormat        `json:"format"`
	Placeholders     map[string]string `json:"placeholders"`
	TemplateBody     string            `json:"template_body"`
	RenderedSkeleton string            `json:"rendered_skeleton"`
}

// Template is one stored email template with placeholder body.
type Template struct {
	TemplateID string            `json:"template_id"`
	Intent     string            `json:"intent"`
	ToneLabel  string            `json:"tone_label"`
	Name       string            `json:"name"`
	Body       string            `json:"body"`
	Meta       map[string]string `json:"meta,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
}

// RecipientSummary is the bounded durable memory object kept per
// (user, recipient) pair.
type RecipientSummary struct {
	Relationship string   `json:"relationship,omitempty"`
	History      []string `json:"history,omitempty"`
	LastIntent   string   `json:"last_intent,omitempty"`
	LastTone     string   `json:"last_tone,omitempty"`
}

// IsEmpty reports whether the summary holds no information.
func (s RecipientSummary) IsEmpty() bool {
	return s.Relationship == "" && len(s.History) == 0 && s.LastIntent == "" && s.LastTone == ""
}

// DefaultUserID is used when the caller supplies no user id.
const DefaultUserID = "default"

// Request is the orchestrator entry payload.
type Request struct {
	UserInput      string            `json:"user_input"`
	ToneOverride   string            `json:"tone_override,omitempty"`
	IntentOverride string            `json:"intent_override,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Result is what one workflow run returns to the caller.
type Result struct {
	Draft                  string   `json:"draft"`
	RequiresClarification  bool     `json:"requires_clarification,omitempty"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`

	ValidationReport ValidationReport `json:"validation_report"`
	Conversation     []Message        `json:"conversation"`
	Intent           string           `json:"intent"`
	IntentConfidence float64          `json:"intent_confidence"`
	IntentSource     string           `json:"intent_source"`
	ToneParams       ToneParams       `json:"tone_params"`
	ToneSource       string           `json:"tone_source"`
	TemplateID       string           `json:"template_id,omitempty"`
	TemplatePlan     *TemplatePlan    `json:"template_plan,omitempty"`
	UserID           string           `json:"user_id"`
	RunID            string           `json:"run_id"`
}
