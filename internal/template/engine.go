// Package template implements the deterministic template plan engine.
//
// The engine controls tone, length, and formatting without any generative
// call: it selects a stored template, computes a length budget, fills
// placeholder defaults, and renders the skeleton the draft writer must
// follow.
package template

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/tone"
)

// TemplateStore is the lookup contract the engine depends on.
// GetBestTemplate applies the candidate fallback order
// (intent,tone) -> (intent,"neutral") -> ("other",tone) -> ("other","neutral")
// and returns nil when no tier matches.
type TemplateStore interface {
	GetBestTemplate(intent, toneLabel string, constraints models.Constraints) (*models.Template, error)
}

// Engine builds deterministic template plans.
type Engine struct {
	store TemplateStore
}

// NewEngine creates a template plan engine backed by the given store.
// A nil store is allowed; selection then always uses the built-in body.
func NewEngine(store TemplateStore) *Engine {
	return &Engine{store: store}
}

// SectionOrder is the fixed section sequence of every plan.
var SectionOrder = []string{"subject", "greeting", "context", "ask", "closing", "signature"}

// SignaturePlaceholder is replaced by the personalization step.
const SignaturePlaceholder = "[Your Name]"

// maxSubjectLen bounds subjects derived from the primary request.
const maxSubjectLen = 70

// BuildPlan produces the deterministic plan for a draft. Identical inputs
// against an unchanged store yield an identical plan.
func (e *Engine) BuildPlan(intent string, toneParams models.ToneParams, constraints models.Constraints, parsedInput models.ParsedInput) models.TemplatePlan {
	toneLabel := tone.NormalizeLabel(toneParams.ToneLabel)

	lengthHint := strings.ToLower(strings.TrimSpace(constraints.Length))
	if lengthHint == "" {
		if toneLabel == "concise" {
			lengthHint = "short"
		} else {
			lengthHint = "medium"
		}
	}
	budget := lengthBudget(lengthHint)

	format := models.PlanFormat{
		UseSubject:   true,
		UseBullets:   constraints.UseBullets,
		MaxBullets:   budget.MaxBullets,
		SectionOrder: append([]string(nil), SectionOrder...),
	}

	templateID := ""
	body := defaultBody
	if e.store != nil {
		tpl, err := e.store.GetBestTemplate(intent, toneLabel, constraints)
		if err != nil {
			slog.Warn("Template lookup failed, using built-in body", "error", err, "intent", intent, "tone_label", toneLabel)
		} else if tpl != nil {
			templateID = tpl.TemplateID
			if tpl.Body != "" {
				body = tpl.Body
			}
		}
	}

	placeholders := map[string]string{
		"subject":   suggestSubject(intent, parsedInput),
		"greeting":  tone.SuggestGreeting(toneLabel, parsedInput.Recipient.Name),
		"context":   suggestContext(parsedInput),
		"ask":       suggestAsk(intent, parsedInput),
		"closing":   tone.SuggestClosing(toneLabel),
		"signature": SignaturePlaceholder,
	}

	return models.TemplatePlan{
		TemplateID:       templateID,
		ToneLabel:        toneLabel,
		LengthHint:       lengthHint,
		LengthBudget:     budget,
		Format:           format,
		Placeholders:     placeholders,
		TemplateBody:     body,
		RenderedSkeleton: Render(body, placeholders),
	}
}

// lengthBudget maps a length hint onto the fixed budget table.
func lengthBudget(hint string) models.LengthBudget {
	switch hint {
	case "very_short", "tiny":
		return models.LengthBudget{TargetWords: 70, MaxWords: 100, MaxParagraphs: 3, MaxBullets: 3}
	case "short", "concise":
		return models.LengthBudget{TargetWords: 110, MaxWords: 160, MaxParagraphs: 4, MaxBullets: 4}
	case "long", "detailed":
		return models.LengthBudget{TargetWords: 220, MaxWords: 320, MaxParagraphs: 6, MaxBullets: 6}
	default:
		return models.LengthBudget{TargetWords: 160, MaxWords: 240, MaxParagraphs: 5, MaxBullets: 5}
	}
}

const defaultBody = "Subject: {{subject}}\n\n" +
	"{{greeting}}\n\n" +
	"{{context}}\n\n" +
	"{{ask}}\n\n" +
	"{{closing}}\n" +
	"{{signature}}\n"

var placeholderPattern = regexp.MustCompile(`\{\{[a-zA-Z0-9_]+\}\}`)

// Render substitutes {{key}} placeholders into the template body. Keys
// without a value render as empty strings; rendering never fails.
func Render(body string, values map[string]string) string {
	out := body
	for k, v := range values {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return placeholderPattern.ReplaceAllString(out, "")
}

func suggestSubject(intent string, parsed models.ParsedInput) string {
	primary := strings.TrimSpace(parsed.PrimaryRequest)
	if primary != "" {
		if len(primary) > maxSubjectLen {
			return primary[:maxSubjectLen]
		}
		return primary
	}
	switch intent {
	case models.IntentFollowUp:
		return "Following up"
	case models.IntentRequest:
		return "Request"
	case models.IntentApology:
		return "Apology"
	case models.IntentOutreach:
		return "Introduction"
	case models.IntentInfo:
		return "Update"
	case models.IntentThankYou:
		return "Thank you"
	case models.IntentScheduling:
		return "Scheduling"
	default:
		return "Message"
	}
}

func suggestContext(parsed models.ParsedInput) string {
	ctx := strings.TrimSpace(parsed.Context)
	if ctx != "" {
		return ctx
	}
	return "I'm reaching out regarding the following."
}

func suggestAsk(intent string, parsed models.ParsedInput) string {
	ask := strings.TrimSpace(parsed.Ask)
	if ask != "" {
		return ask
	}
	switch intent {
	case models.IntentFollowUp:
		return "Could you share an update when you have a moment?"
	case models.IntentRequest:
		return "Could you please help with this?"
	case models.IntentApology:
		return "I'll make sure this is resolved promptly."
	case models.IntentOutreach:
		return "Would you be open to a brief chat?"
	case models.IntentScheduling:
		return "Would any of these times work for you?"
	case models.IntentThankYou:
		return "No reply needed - I just wanted to say thanks."
	default:
		return "Please let me know your thoughts."
	}
}
