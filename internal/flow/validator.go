package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/openai/openai-go"
)

const validatorSystemPrompt = `You are the review and validation agent for an AI email assistant.

Review the drafted email for grammar, clarity, tone alignment, constraint
compliance, and policy violations (harassment, deception, confidential data).

Statuses:
- "PASS": the draft is ready to send.
- "FAIL": quality problems that a revision can fix.
- "BLOCKED": a policy or content violation; the draft must be discarded.

Return ONLY valid JSON matching this schema:
{
  "status": "PASS"|"FAIL"|"BLOCKED",
  "summary": string,
  "issues": [{"category": string, "severity": "low"|"medium"|"high", "detail": string, "suggested_fix": string}],
  "suggested_edits": {},
  "revision_instructions": string,
  "user_message": string,
  "conflicting_constraints": [string],
  "constraint_resolution": {"drop_must_include": [string], "add_must_avoid": [string], "override_tone_label": string}
}

On FAIL, revision_instructions must be actionable. On BLOCKED, user_message
must explain the block to the user.`

// defaultRevisionInstructions is synthesized when the generator fails a
// draft without saying how to fix it.
const defaultRevisionInstructions = "Revise the draft to address the reported issues while keeping the original intent, tone, and length budget."

// Validator reviews the draft and produces the structured verdict that
// drives the retry/repair loop. It sees only the draft, tone, intent, and
// constraints, never the full state.
type Validator struct {
	client genai.ClientInterface
}

// NewValidator creates the review/validation node.
func NewValidator(client genai.ClientInterface) *Validator {
	return &Validator{client: client}
}

// Name returns the node's graph name.
func (v *Validator) Name() string { return "review_validator" }

// Run validates the current draft.
func (v *Validator) Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	payload := map[string]any{
		"draft":       state.FinalDraft(),
		"tone_params": state.ToneParams,
		"intent":      state.Intent,
		"constraints": state.Constraints,
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(validatorSystemPrompt),
		openai.UserMessage(payloadJSON(logger, v.Name(), payload)),
	}

	raw, err := v.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Delta{}, fmt.Errorf("validation generation failed: %w", err)
	}

	report, decodeErr := decodeJSON[models.ValidationReport](v.Name(), raw)
	if decodeErr != nil {
		logger.Warn("Validator decode failed, forcing FAIL", "error", decodeErr)
		report = models.ValidationReport{
			Status:  models.ValidationFail,
			Summary: "Validator output could not be parsed.",
			Issues: []models.ValidationIssue{{
				Category:     "validator",
				Severity:     models.SeverityHigh,
				Detail:       "The validation response was not valid JSON.",
				SuggestedFix: "Retry the validation.",
			}},
			RevisionInstructions: defaultRevisionInstructions,
		}
	}

	report = NormalizeReport(report)
	logger.Debug("Validator verdict", "status", report.Status, "issues", len(report.Issues), "retry_count", state.RetryCount)

	reportCopy := report
	return models.Delta{
		Messages:         []models.Message{assistantMessage("Validation: " + report.Status + " - " + report.Summary)},
		ValidationReport: &reportCopy,
		IsValid:          models.Bool(report.Status == models.ValidationPass),
	}, nil
}

// NormalizeReport enforces the verdict invariants: the status is one of the
// three known values (unknown collapses to FAIL), a high-severity issue
// forces FAIL unless the status is BLOCKED, and FAIL always carries
// actionable revision instructions.
func NormalizeReport(report models.ValidationReport) models.ValidationReport {
	status := strings.ToUpper(strings.TrimSpace(report.Status))
	switch status {
	case models.ValidationPass, models.ValidationFail, models.ValidationBlocked:
	default:
		status = models.ValidationFail
		report.Issues = append(report.Issues, models.ValidationIssue{
			Category: "validator",
			Severity: models.SeverityHigh,
			Detail:   fmt.Sprintf("Unknown validation status %q.", report.Status),
		})
	}

	if status != models.ValidationBlocked && report.HasHighSeverityIssue() {
		status = models.ValidationFail
	}
	report.Status = status

	if status == models.ValidationFail && strings.TrimSpace(report.RevisionInstructions) == "" {
		report.RevisionInstructions = defaultRevisionInstructions
	}
	return report
}
