package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/tone"
	"github.com/openai/openai-go"
)

const toneSystemPrompt = `You are the tone stylist for an AI email assistant.

Given the request and its detected intent, propose tone settings for the
email. Formality, warmth, and directness are integers in [0,100].

Return ONLY valid JSON matching this schema:
{"tone_label": string, "formality": number, "warmth": number, "directness": number, "confidence": number}

Prefer one of these labels: neutral, formal, friendly, concise, apologetic,
assertive, casual, warm, direct.`

// ToneStylist determines tone parameters. A UI tone override seeded into
// the state is authoritative and skips generation.
type ToneStylist struct {
	client genai.ClientInterface
}

// NewToneStylist creates the tone styling node.
func NewToneStylist(client genai.ClientInterface) *ToneStylist {
	return &ToneStylist{client: client}
}

// Name returns the node's graph name.
func (t *ToneStylist) Name() string { return "tone_stylist" }

// Run resolves tone parameters and their source.
func (t *ToneStylist) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	if label := state.ToneParams.ToneLabel; label != "" {
		params := tone.DefaultParams(label)
		params.Confidence = 1.0
		logger.Debug("ToneStylist using UI override", "tone_label", params.ToneLabel)
		return toneDelta(params, models.SourceUI), nil
	}

	payload := map[string]any{
		"request":  state.RawInput,
		"intent":   state.Intent,
		"audience": state.Constraints.Audience,
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(toneSystemPrompt),
		openai.UserMessage(payloadJSON(logger, t.Name(), payload)),
	}

	raw, err := t.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("tone styling generation failed: %w", err)
	}

	out, decodeErr := decodeJSON[models.ToneParams](t.Name(), raw)
	if decodeErr != nil {
		logger.Warn("ToneStylist decode failed, using neutral tone", "error", decodeErr)
		return toneDelta(tone.NeutralParams(), models.SourceDefault), nil
	}

	params := tone.Clamp(out)
	logger.Debug("ToneStylist proposed tone", "tone_label", params.ToneLabel, "formality", params.Formality, "warmth", params.Warmth, "directness", params.Directness)
	return toneDelta(params, models.SourceModel), nil
}

func toneDelta(params models.ToneParams, source string) models.Delta {
	p := params
	return models.Delta{
		Messages:   []models.Message{assistantMessage("Tone: " + p.ToneLabel)},
		ToneParams: &p,
		ToneSource: models.String(source),
	}
}
