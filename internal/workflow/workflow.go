// Package workflow implements the email drafting state machine.
//
// The orchestrator owns the per-run WorkflowState, wires the agent nodes
// into a directed graph with conditional edges, applies the bounded
// retry/repair loop, and exposes a single Run entry point. Routing is an
// explicit lookup table of pure predicates over the state snapshot; nodes
// return deltas which are merged by a pure function.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/flow"
	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/recipient"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/BTreeMap/DraftPipe/internal/template"
	"github.com/BTreeMap/DraftPipe/internal/tone"
	"github.com/google/uuid"
)

// Graph node names.
const (
	nodeInputParser     = "input_parser"
	nodeIntentDetection = "intent_detection"
	nodeToneStylist     = "tone_stylist"
	nodeDraftWriter     = "draft_writer"
	nodePersonalization = "personalization"
	nodeReviewValidator = "review_validator"
	nodeBumpRetry       = "bump_retry"
	nodeApplyRevision   = "apply_revision_hints"
	nodeMemory          = "memory"
	nodeEnd             = ""
)

// MaxRetries bounds how many times the repair loop may re-enter drafting.
const MaxRetries = 2

// RecursionLimit is the hard ceiling on graph steps per run, guarding
// against pathological loops independently of the retry cap.
const RecursionLimit = 50

// step pairs a node with its routing predicate. The predicate is a pure
// function over the merged state snapshot returning the next node name.
type step struct {
	node  flow.Node
	route func(models.WorkflowState) string
}

// Workflow is the orchestrator for one email drafting graph.
type Workflow struct {
	steps map[string]step
}

// New wires the workflow graph. The deterministic client drives parsing,
// classification, validation, and memory merging; the creative client
// drives drafting.
func New(deterministic, creative genai.ClientInterface, st store.Store) *Workflow {
	engine := template.NewEngine(st)

	w := &Workflow{steps: make(map[string]step)}

	w.steps[nodeInputParser] = step{
		node: flow.NewInputParser(deterministic),
		route: func(s models.WorkflowState) string {
			if s.RequiresClarification {
				return nodeEnd
			}
			return nodeIntentDetection
		},
	}
	w.steps[nodeIntentDetection] = step{
		node:  flow.NewIntentDetector(deterministic),
		route: func(models.WorkflowState) string { return nodeToneStylist },
	}
	w.steps[nodeToneStylist] = step{
		node:  flow.NewToneStylist(deterministic),
		route: func(models.WorkflowState) string { return nodeDraftWriter },
	}
	w.steps[nodeDraftWriter] = step{
		node:  flow.NewDraftWriter(creative, engine),
		route: func(models.WorkflowState) string { return nodePersonalization },
	}
	w.steps[nodePersonalization] = step{
		node:  flow.NewPersonalizer(deterministic, st),
		route: func(models.WorkflowState) string { return nodeReviewValidator },
	}
	w.steps[nodeReviewValidator] = step{
		node: flow.NewValidator(deterministic),
		route: func(s models.WorkflowState) string {
			switch s.ValidationReport.Status {
			case models.ValidationBlocked:
				// Terminal: the draft is discarded and memory is bypassed.
				return nodeEnd
			case models.ValidationFail:
				return nodeBumpRetry
			default:
				return nodeMemory
			}
		},
	}
	w.steps[nodeBumpRetry] = step{
		node: funcNode{name: nodeBumpRetry, fn: bumpRetry},
		route: func(s models.WorkflowState) string {
			if s.RetryCount < MaxRetries {
				return nodeApplyRevision
			}
			return nodeMemory
		},
	}
	w.steps[nodeApplyRevision] = step{
		node:  funcNode{name: nodeApplyRevision, fn: applyRevisionHints},
		route: func(models.WorkflowState) string { return nodeDraftWriter },
	}
	w.steps[nodeMemory] = step{
		node:  flow.NewMemorySummarizer(deterministic, st),
		route: func(models.WorkflowState) string { return nodeEnd },
	}

	return w
}

// Run executes one drafting workflow. The state is created fresh, walked
// strictly sequentially through the graph, and discarded after the result
// is extracted. Cancellation of ctx abandons the run before the next node
// without committing memory writes.
func (w *Workflow) Run(ctx context.Context, req models.Request) (models.Result, error) {
	runID := newRunID()
	logger := slog.Default().With("run_id", runID)
	logger.Debug("Workflow run starting",
		"input_len", len(req.UserInput),
		"tone_override", req.ToneOverride,
		"intent_override", req.IntentOverride,
		"metadata_keys", len(req.Metadata))

	state := initialState(req)

	current := nodeInputParser
	for steps := 0; current != nodeEnd; steps++ {
		if steps >= RecursionLimit {
			return models.Result{}, fmt.Errorf("workflow exceeded recursion limit of %d steps", RecursionLimit)
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("Workflow run cancelled", "node", current)
			return models.Result{}, fmt.Errorf("workflow cancelled at %s: %w", current, err)
		}

		st, ok := w.steps[current]
		if !ok {
			return models.Result{}, fmt.Errorf("workflow routed to unknown node %q", current)
		}

		logger.Debug("Workflow entering node", "node", current, "step", steps)
		delta, err := st.node.Run(ctx, logger, state)
		if err != nil {
			return models.Result{}, fmt.Errorf("node %s failed: %w", current, err)
		}
		state = models.Merge(state, delta)
		current = st.route(state)
	}

	logger.Debug("Workflow run finished",
		"intent", state.Intent,
		"intent_source", state.IntentSource,
		"tone_label", state.ToneParams.ToneLabel,
		"template_id", state.TemplateID,
		"retry_count", state.RetryCount,
		"is_valid", state.IsValid,
		"validation_status", state.ValidationReport.Status,
		"requires_clarification", state.RequiresClarification)

	return models.Result{
		Draft:                  state.FinalDraft(),
		RequiresClarification:  state.RequiresClarification,
		ClarificationQuestions: state.ClarificationQuestions,

		ValidationReport: state.ValidationReport,
		Conversation:     state.Conversation,
		Intent:           state.Intent,
		IntentConfidence: state.IntentConfidence,
		IntentSource:     state.IntentSource,
		ToneParams:       state.ToneParams,
		ToneSource:       state.ToneSource,
		TemplateID:       state.TemplateID,
		TemplatePlan:     state.TemplatePlan,
		UserID:           state.UserID,
		RunID:            runID,
	}, nil
}

// initialState seeds a fresh WorkflowState from the request: metadata
// becomes the authoritative constraints passthrough, non-sentinel overrides
// are recorded, and the conversation opens with the override/metadata
// system messages followed by the user input.
func initialState(req models.Request) models.WorkflowState {
	state := models.WorkflowState{
		RawInput: req.UserInput,
		UserID:   models.DefaultUserID,
	}

	if len(req.Metadata) > 0 {
		state.Constraints.Extra = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			state.Constraints.Extra[k] = v
		}
		if userID := strings.TrimSpace(req.Metadata[recipient.MetaKeyUserID]); userID != "" {
			state.UserID = userID
		}
		if b, err := json.Marshal(req.Metadata); err == nil {
			state.Conversation = append(state.Conversation, models.Message{
				Role:    models.RoleSystem,
				Content: "METADATA (authoritative): " + string(b),
			})
		}
	}

	if t := strings.TrimSpace(req.ToneOverride); t != "" && !models.IsOverrideSentinel(t) {
		state.ToneParams.ToneLabel = tone.NormalizeLabel(t)
		state.Conversation = append(state.Conversation, models.Message{
			Role:    models.RoleSystem,
			Content: "TONE OVERRIDE (authoritative): " + t,
		})
	}
	if i := strings.TrimSpace(req.IntentOverride); i != "" && !models.IsOverrideSentinel(i) {
		state.UserIntentOverride = i
		state.Conversation = append(state.Conversation, models.Message{
			Role:    models.RoleSystem,
			Content: "INTENT OVERRIDE (authoritative): " + i,
		})
	}

	state.Conversation = append(state.Conversation, models.Message{
		Role:    models.RoleUser,
		Content: req.UserInput,
	})
	return state
}

// funcNode adapts a deterministic passthrough function into a Node.
type funcNode struct {
	name string
	fn   func(logger *slog.Logger, state models.WorkflowState) models.Delta
}

func (n funcNode) Name() string { return n.name }

func (n funcNode) Run(_ context.Context, logger *slog.Logger, state models.WorkflowState) (models.Delta, error) {
	return n.fn(logger, state), nil
}

// bumpRetry increments the retry counter after a FAIL verdict.
func bumpRetry(logger *slog.Logger, state models.WorkflowState) models.Delta {
	retry := state.RetryCount + 1
	logger.Debug("Validation failed, bumping retry count", "retry_count", retry)
	return models.Delta{RetryCount: models.Int(retry)}
}

// applyRevisionHints applies the validator's constraint resolution before
// re-drafting: listed items leave must_include, listed items join
// must_avoid (deduplicated, order preserved), and an override tone label
// replaces the current one. Edits are cumulative across retries. When the
// resolution conflicts with itself, avoid wins: anything in must_avoid is
// also removed from must_include.
func applyRevisionHints(logger *slog.Logger, state models.WorkflowState) models.Delta {
	res := state.ValidationReport.ConstraintResolution
	if res.IsZero() {
		logger.Debug("No constraint resolution to apply")
		return models.Delta{}
	}

	constraints := state.Constraints.Clone()

	if len(res.DropMustInclude) > 0 {
		constraints.MustInclude = removeAll(constraints.MustInclude, res.DropMustInclude)
	}
	if len(res.AddMustAvoid) > 0 {
		constraints.MustAvoid = appendUnique(constraints.MustAvoid, res.AddMustAvoid)
	}
	// Avoid wins over include.
	constraints.MustInclude = removeAll(constraints.MustInclude, constraints.MustAvoid)

	delta := models.Delta{Constraints: &constraints}

	if override := strings.TrimSpace(res.OverrideToneLabel); override != "" {
		params := state.ToneParams
		params.ToneLabel = tone.NormalizeLabel(override)
		delta.ToneParams = &params
	}

	logger.Debug("Applied revision hints",
		"dropped", len(res.DropMustInclude),
		"avoided", len(res.AddMustAvoid),
		"tone_override", res.OverrideToneLabel)
	return delta
}

func removeAll(items, drop []string) []string {
	if len(items) == 0 || len(drop) == 0 {
		return items
	}
	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}
	out := items[:0]
	for _, item := range items {
		if !dropSet[item] {
			out = append(out, item)
		}
	}
	return out
}

func appendUnique(items, add []string) []string {
	seen := make(map[string]bool, len(items)+len(add))
	out := make([]string, 0, len(items)+len(add))
	for _, item := range append(append([]string(nil), items...), add...) {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// newRunID returns a short correlation id unique per run.
func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
