// Package flow implements the agent nodes of the email drafting pipeline.
//
// Every node follows the same contract: it receives the current workflow
// state snapshot, builds a minimal node-specific payload (never the full
// state), optionally calls the generator, decodes the output against the
// node's fixed schema, and returns a partial-state Delta for the
// orchestrator to merge. Nodes never mutate state directly, and malformed
// generator output never propagates as an error: each node degrades to its
// own defined fallback.
package flow

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

// Node is one unit of the workflow graph.
type Node interface {
	// Name returns the node's graph name.
	Name() string

	// Run executes the node against a state snapshot. The logger is
	// run-scoped and already carries the run correlation id. An error
	// return signals an infrastructure failure (generator or store
	// unreachable), never a content-quality problem.
	Run(ctx context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error)
}

// payloadJSON serializes a node payload for prompt injection. Payloads are
// plain data assembled by the node, so serialization cannot fail in
// practice; a failure degrades to an empty object.
func payloadJSON(logger *slog.Logger, node string, payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to serialize node payload", "node", node, "error", err)
		return "{}"
	}
	return string(b)
}

func assistantMessage(content string) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: content}
}
