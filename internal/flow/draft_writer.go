package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/template"
	"github.com/BTreeMap/DraftPipe/internal/tone"
	"github.com/openai/openai-go"
)

const draftWriterSystemPrompt = `You are the draft writer for an AI email assistant.

You will receive a rendered email skeleton, a template plan with a length
budget and formatting guidance, and the parsed request.

Instructions:
- Produce the final email draft in plain text.
- Respect the length budget: never exceed max_words words or max_paragraphs paragraphs.
- Use bullets only if use_bullets is true, and never more than max_bullets.
- Honor must_include and must_avoid constraints.
- Preserve the overall structure of the rendered skeleton.
- Do not output JSON. Do not output analysis. Output only the email.`

// DraftWriter builds the deterministic template plan and generates the
// draft text within its bounds. The plan is always available even when
// generation produces nothing usable.
type DraftWriter struct {
	client genai.ClientInterface
	engine *template.Engine
}

// NewDraftWriter creates the drafting node.
func NewDraftWriter(client genai.ClientInterface, engine *template.Engine) *DraftWriter {
	return &DraftWriter{client: client, engine: engine}
}

// Name returns the node's graph name.
func (w *DraftWriter) Name() string { return "draft_writer" }

// Run builds the plan and drafts the email.
func (w *DraftWriter) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	intent := state.Intent
	if intent == "" {
		intent = models.IntentOther
	}

	plan := w.engine.BuildPlan(intent, state.ToneParams, state.Constraints, state.ParsedInput)
	logger.Debug("DraftWriter built plan",
		"template_id", plan.TemplateID,
		"tone_label", plan.ToneLabel,
		"length_hint", plan.LengthHint,
		"max_words", plan.LengthBudget.MaxWords)

	payload := map[string]any{
		"intent":       intent,
		"tone_params":  state.ToneParams,
		"constraints":  state.Constraints,
		"parsed_input": state.ParsedInput,
		"template_plan": map[string]any{
			"template_id":   plan.TemplateID,
			"tone_label":    plan.ToneLabel,
			"length_hint":   plan.LengthHint,
			"length_budget": plan.LengthBudget,
			"format":        plan.Format,
		},
		"rendered_skeleton": plan.RenderedSkeleton,
	}
	if state.RetryCount > 0 && state.ValidationReport.RevisionInstructions != "" {
		payload["revision_instructions"] = state.ValidationReport.RevisionInstructions
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(draftWriterSystemPrompt + "\n\n" + tone.BuildToneGuide(state.ToneParams)),
		openai.UserMessage(payloadJSON(logger, w.Name(), payload)),
	}

	raw, err := w.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("draft generation failed: %w", err)
	}

	draft := strings.TrimSpace(raw)
	if draft == "" {
		// The deterministic skeleton is always usable text.
		logger.Warn("DraftWriter got empty generation, falling back to rendered skeleton")
		draft = plan.RenderedSkeleton
	}

	logger.Debug("DraftWriter produced draft", "draft_len", len(draft), "retry_count", state.RetryCount)
	planCopy := plan
	return models.Delta{
		Messages:     []models.Message{assistantMessage(draft)},
		Draft:        models.String(draft),
		TemplateID:   models.String(plan.TemplateID),
		TemplatePlan: &planCopy,
		// A re-draft replaces any prior personalization.
		PersonalizedDraft: models.String(""),
	}, nil
}
