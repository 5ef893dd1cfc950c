package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/openai/openai-go"
)

const intentSystemPrompt = `You are the intent detection agent for email drafting.

Classify the user's request into exactly ONE label from:
- outreach
- follow_up
- apology
- info
- request
- thank_you
- scheduling
- other

Return ONLY valid JSON matching this schema:
{"intent": string, "confidence": number, "reason": string}

The confidence is in [0,1]. The reason is one sentence.`

// coercedConfidenceCap bounds confidence when the model's label falls
// outside the closed set.
const coercedConfidenceCap = 0.4

type intentOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// IntentDetector classifies the communicative goal of the request. A
// non-sentinel UI override is authoritative and skips generation entirely.
type IntentDetector struct {
	client genai.ClientInterface
}

// NewIntentDetector creates the intent detection node.
func NewIntentDetector(client genai.ClientInterface) *IntentDetector {
	return &IntentDetector{client: client}
}

// Name returns the node's graph name.
func (d *IntentDetector) Name() string { return "intent_detection" }

// Run resolves the intent label, its confidence, and its source.
func (d *IntentDetector) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	if override := state.UserIntentOverride; override != "" && !models.IsOverrideSentinel(override) {
		label, _ := models.NormalizeIntent(override)
		logger.Debug("IntentDetector using UI override", "override", override, "intent", label)
		return intentDelta(label, 1.0, models.SourceUI), nil
	}

	payload := map[string]any{
		"request":         state.RawInput,
		"primary_request": state.ParsedInput.PrimaryRequest,
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(intentSystemPrompt),
		openai.UserMessage(payloadJSON(logger, d.Name(), payload)),
	}

	raw, err := d.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("intent detection generation failed: %w", err)
	}

	out, decodeErr := decodeJSON[intentOutput](d.Name(), raw)
	if decodeErr != nil {
		logger.Warn("IntentDetector decode failed, using default intent", "error", decodeErr)
		return intentDelta(models.IntentOther, 0.0, models.SourceDefault), nil
	}

	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	label, known := models.NormalizeIntent(out.Intent)
	if !known && confidence > coercedConfidenceCap {
		confidence = coercedConfidenceCap
	}

	logger.Debug("IntentDetector classified", "intent", label, "confidence", confidence, "known_label", known)
	return intentDelta(label, confidence, models.SourceModel), nil
}

func intentDelta(label string, confidence float64, source string) models.Delta {
	return models.Delta{
		Messages:         []models.Message{assistantMessage("Intent: " + label)},
		Intent:           models.String(label),
		IntentConfidence: models.Float(confidence),
		IntentSource:     models.String(source),
	}
}
