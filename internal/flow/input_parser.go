package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/recipient"
	"github.com/openai/openai-go"
)

const inputParserSystemPrompt = `You are the input parsing agent for an AI email assistant.

Normalize the user's request into structured fields. If the request has no
identifiable goal, set requires_clarification to true and list the questions
the user must answer.

Return ONLY valid JSON matching this schema:
{
  "requires_clarification": boolean,
  "clarification_questions": [string],
  "parsed_input": {
    "primary_request": string,
    "recipient": {"name": string, "role": string, "relationship": string, "org": string, "email": string},
    "context": string,
    "ask": string
  },
  "constraints": {
    "length": string,
    "format": string,
    "audience": string,
    "deadline": string,
    "must_include": [string],
    "must_avoid": [string],
    "use_bullets": boolean,
    "bullet_count": number
  }
}

Rules:
- Do NOT invent recipient details that are not in the request.
- Leave unknown fields empty rather than guessing.`

// inputParserOutput is the fixed decode schema for the input parser.
type inputParserOutput struct {
	RequiresClarification  bool               `json:"requires_clarification"`
	ClarificationQuestions []string           `json:"clarification_questions"`
	ParsedInput            models.ParsedInput `json:"parsed_input"`
	Constraints            models.Constraints `json:"constraints"`
}

// defaultClarificationQuestions are synthesized when the generator output
// is unusable or names no questions.
var defaultClarificationQuestions = []string{
	"What should this email accomplish?",
	"Who is the recipient, and what is your relationship to them?",
}

// InputParser validates and normalizes the user's request.
type InputParser struct {
	client genai.ClientInterface
}

// NewInputParser creates the input parsing node.
func NewInputParser(client genai.ClientInterface) *InputParser {
	return &InputParser{client: client}
}

// Name returns the node's graph name.
func (p *InputParser) Name() string { return "input_parser" }

// Run parses the raw request into structured input and constraints.
func (p *InputParser) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	logger.Debug("InputParser running", "raw_len", len(state.RawInput))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(inputParserSystemPrompt),
	}
	if len(state.Constraints.Extra) > 0 {
		messages = append(messages, openai.SystemMessage(
			"METADATA (authoritative): "+payloadJSON(logger, p.Name(), state.Constraints.Extra)))
	}
	messages = append(messages, openai.UserMessage(state.RawInput))

	raw, err := p.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("input parser generation failed: %w", err)
	}

	out, decodeErr := decodeJSON[inputParserOutput](p.Name(), raw)
	if decodeErr != nil {
		logger.Warn("InputParser decode failed, requesting clarification", "error", decodeErr)
		return p.clarificationFallback(nil), nil
	}

	parsed := out.ParsedInput
	parsed.PrimaryRequest = strings.TrimSpace(parsed.PrimaryRequest)
	parsed.Context = strings.TrimSpace(parsed.Context)
	parsed.Ask = strings.TrimSpace(parsed.Ask)
	parsed.Recipient = recipient.Normalize(parsed.Recipient, state.Constraints.Extra)

	if out.RequiresClarification || parsed.PrimaryRequest == "" {
		logger.Debug("InputParser requires clarification", "questions", len(out.ClarificationQuestions))
		return p.clarificationFallback(out.ClarificationQuestions), nil
	}

	constraints := mergeConstraints(out.Constraints, state.Constraints)

	logger.Debug("InputParser parsed request",
		"primary_request", parsed.PrimaryRequest,
		"recipient_set", !parsed.Recipient.IsEmpty(),
		"must_include", len(constraints.MustInclude))

	return models.Delta{
		Messages:              []models.Message{assistantMessage("Parsed request: " + parsed.PrimaryRequest)},
		RequiresClarification: models.Bool(false),
		ParsedInput:           &parsed,
		Constraints:           &constraints,
	}, nil
}

// clarificationFallback terminates the run without drafting.
func (p *InputParser) clarificationFallback(questions []string) models.Delta {
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, defaultClarificationQuestions...)
	}
	return models.Delta{
		Messages:               []models.Message{assistantMessage("I need a bit more detail: " + strings.Join(cleaned, " "))},
		RequiresClarification:  models.Bool(true),
		ClarificationQuestions: cleaned,
		ParsedInput:            &models.ParsedInput{},
	}
}

// mergeConstraints overlays seed constraints (UI/metadata, authoritative)
// onto parser-extracted ones. Seed wins per field wherever it is set; the
// Extra passthrough map is always preserved from the seed.
func mergeConstraints(parsed, seed models.Constraints) models.Constraints {
	out := parsed.Clone()
	if seed.Length != "" {
		out.Length = seed.Length
	}
	if seed.Format != "" {
		out.Format = seed.Format
	}
	if seed.Audience != "" {
		out.Audience = seed.Audience
	}
	if seed.Deadline != "" {
		out.Deadline = seed.Deadline
	}
	if len(seed.MustInclude) > 0 {
		out.MustInclude = append([]string(nil), seed.MustInclude...)
	}
	if len(seed.MustAvoid) > 0 {
		out.MustAvoid = append([]string(nil), seed.MustAvoid...)
	}
	if seed.UseBullets {
		out.UseBullets = true
	}
	if seed.BulletCount > 0 {
		out.BulletCount = seed.BulletCount
	}
	if seed.Extra != nil {
		out.Extra = make(map[string]string, len(seed.Extra))
		for k, v := range seed.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
