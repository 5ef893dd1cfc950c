package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/openai/openai-go"
)

const personalizerSystemPrompt = `You are the personalization agent for an AI email assistant.

Refine the existing draft using the user profile ONLY if values are
explicitly present in the payload.

Return ONLY valid JSON matching this schema:
{"personalized_draft": string, "memory_updates": {}}

Rules:
- Do NOT invent names, titles, companies, deadlines, or facts.
- Only apply substitutions when values are explicitly present in user_profile or parsed_input.
- Keep edits minimal (greeting, signature, small phrasing tweaks).
- If no personalization is possible, return the original draft unchanged.`

type personalizerOutput struct {
	PersonalizedDraft string         `json:"personalized_draft"`
	MemoryUpdates     map[string]any `json:"memory_updates"`
}

// Personalizer loads the user profile and applies safe minimal
// personalization to the draft.
type Personalizer struct {
	client genai.ClientInterface
	store  store.Store
}

// NewPersonalizer creates the personalization node.
func NewPersonalizer(client genai.ClientInterface, st store.Store) *Personalizer {
	return &Personalizer{client: client, store: st}
}

// Name returns the node's graph name.
func (p *Personalizer) Name() string { return "personalization" }

// Run personalizes the current draft with stored profile data.
func (p *Personalizer) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	draft := strings.TrimSpace(state.FinalDraft())
	if draft == "" {
		logger.Debug("Personalizer skipping, no draft present")
		return models.Delta{
			PersonalizedDraft: models.String(""),
			MemoryUpdates:     map[string]any{},
		}, nil
	}

	userID := strings.TrimSpace(state.UserID)
	if userID == "" {
		userID = models.DefaultUserID
	}

	profile, err := p.store.GetProfile(userID)
	if err != nil {
		return models.Delta{}, fmt.Errorf("profile load failed for %s: %w", userID, err)
	}
	logger.Debug("Personalizer loaded profile", "user_id", userID, "profile_keys", len(profile))

	payload := map[string]any{
		"draft":        draft,
		"user_profile": profile,
		"parsed_input": state.ParsedInput,
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(personalizerSystemPrompt),
		openai.UserMessage(payloadJSON(logger, p.Name(), payload)),
	}

	raw, err := p.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("personalization generation failed: %w", err)
	}

	out, decodeErr := decodeJSON[personalizerOutput](p.Name(), raw)
	if decodeErr != nil {
		// Fail soft: keep the original draft.
		logger.Warn("Personalizer decode failed, keeping original draft", "error", decodeErr)
		return models.Delta{
			PersonalizedDraft: models.String(draft),
			MemoryUpdates:     map[string]any{},
			UserContext:       profile,
		}, nil
	}

	personalized := strings.TrimSpace(out.PersonalizedDraft)
	if personalized == "" {
		personalized = draft
	}
	memUpdates := out.MemoryUpdates
	if memUpdates == nil {
		memUpdates = map[string]any{}
	}

	logger.Debug("Personalizer produced draft", "personalized_len", len(personalized), "memory_update_keys", len(memUpdates))
	return models.Delta{
		Messages:          []models.Message{assistantMessage(personalized)},
		PersonalizedDraft: models.String(personalized),
		MemoryUpdates:     memUpdates,
		UserContext:       profile,
	}, nil
}
