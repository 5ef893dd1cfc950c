package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/recipient"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/openai/openai-go"
)

const memorySystemPrompt = `You are the memory agent for an AI email assistant.

Maintain a concise, durable summary of prior email interactions between a
user and a recipient. Merge the new email into the existing summary.

Return ONLY valid JSON matching this schema:
{"summary": {"relationship": string, "history": [string], "last_intent": string, "last_tone": string}}

Rules:
- Preserve important facts, decisions, relationship context, and tone patterns.
- Do NOT include verbatim email text.
- Do NOT invent facts.
- Append to history only if the new email adds material information.
- Avoid duplication. Keep the summary concise (max ~120 words).`

// maxHistoryEntries bounds the per-recipient history list.
const maxHistoryEntries = 20

type memoryOutput struct {
	Summary *models.RecipientSummary `json:"summary"`
}

// MemorySummarizer persists a merged per-recipient summary after a
// successful run. It writes nothing unless the validation status is PASS,
// a user id is present, and a stable recipient key is derivable.
type MemorySummarizer struct {
	client genai.ClientInterface
	store  store.Store
}

// NewMemorySummarizer creates the memory persistence node.
func NewMemorySummarizer(client genai.ClientInterface, st store.Store) *MemorySummarizer {
	return &MemorySummarizer{client: client, store: st}
}

// Name returns the node's graph name.
func (m *MemorySummarizer) Name() string { return "memory" }

// Run merges and persists the recipient summary when the run qualifies.
func (m *MemorySummarizer) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	if state.ValidationReport.Status != models.ValidationPass {
		logger.Debug("MemorySummarizer skipping persistence", "status", state.ValidationReport.Status)
		return models.Delta{}, nil
	}
	userID := strings.TrimSpace(state.UserID)
	if userID == "" {
		logger.Debug("MemorySummarizer skipping persistence, no user id")
		return models.Delta{}, nil
	}

	rec := recipient.Normalize(state.ParsedInput.Recipient, state.Constraints.Extra)
	key := recipient.Key(rec)
	if key == "" {
		logger.Debug("MemorySummarizer skipping persistence, no recipient key derivable")
		return models.Delta{}, nil
	}

	past, err := m.store.GetPastSummary(userID, key)
	if err != nil {
		return models.Delta{}, fmt.Errorf("summary load failed: %w", err)
	}

	payload := map[string]any{
		"existing_summary": past,
		"draft":            state.FinalDraft(),
		"intent":           state.Intent,
		"tone":             state.ToneParams,
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(memorySystemPrompt),
		openai.UserMessage(payloadJSON(logger, m.Name(), payload)),
	}

	raw, err := m.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("memory merge generation failed: %w", err)
	}

	out, decodeErr := decodeJSON[memoryOutput](m.Name(), raw)
	if decodeErr != nil || out.Summary == nil {
		// Skip the write rather than corrupt the stored summary.
		logger.Warn("MemorySummarizer decode failed, skipping persistence", "error", decodeErr)
		return models.Delta{}, nil
	}

	merged := boundSummary(*out.Summary)
	if err := m.store.UpsertSummary(userID, key, merged); err != nil {
		return models.Delta{}, fmt.Errorf("summary upsert failed: %w", err)
	}

	logger.Debug("MemorySummarizer upserted summary", "user_id", userID, "recipient_key", key, "history_len", len(merged.History))
	return models.Delta{}, nil
}

// boundSummary deduplicates the history and caps it at maxHistoryEntries,
// dropping the oldest entries first.
func boundSummary(s models.RecipientSummary) models.RecipientSummary {
	seen := make(map[string]bool, len(s.History))
	deduped := make([]string, 0, len(s.History))
	for _, entry := range s.History {
		entry = strings.TrimSpace(entry)
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		deduped = append(deduped, entry)
	}
	if len(deduped) > maxHistoryEntries {
		deduped = deduped[len(deduped)-maxHistoryEntries:]
	}
	s.History = deduped
	return s
}
