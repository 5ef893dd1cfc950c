package workflow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/BTreeMap/DraftPipe/internal/testutil"
	"github.com/BTreeMap/DraftPipe/internal/workflow"
)

const parserOK = `{
	"requires_clarification": false,
	"parsed_input": {
		"primary_request": "Follow up with the recruiter about my application",
		"recipient": {"name": "Sam", "role": "recruiter", "email": "sam@example.com"},
		"context": "Interviewed last Tuesday",
		"ask": "Ask for a status update"
	},
	"constraints": {}
}`

const toneOK = `{"tone_label": "neutral", "formality": 70, "warmth": 45, "directness": 65, "confidence": 0.8}`

func happyGenerator() *testutil.ScriptedGenerator {
	return testutil.NewScriptedGenerator().
		Script(testutil.MarkerParser, parserOK).
		Script(testutil.MarkerIntent, `{"intent": "follow_up", "confidence": 0.9, "reason": "status check"}`).
		Script(testutil.MarkerTone, toneOK).
		Script(testutil.MarkerDraft, "Subject: Following up\n\nHi Sam,\n\nJust checking in on my application.\n\nThanks,\n[Your Name]").
		Script(testutil.MarkerPersonalizer, `{"personalized_draft": "", "memory_updates": {}}`).
		Script(testutil.MarkerValidator, `{"status": "PASS", "summary": "ready", "issues": []}`).
		Script(testutil.MarkerMemory, `{"summary": {"relationship": "recruiter", "history": ["followed up on application"], "last_intent": "follow_up", "last_tone": "neutral"}}`)
}

func markerCount(gen *testutil.ScriptedGenerator, marker string) int {
	n := 0
	for _, c := range gen.Calls {
		if c == marker {
			n++
		}
	}
	return n
}

func TestRunHappyPath(t *testing.T) {
	gen := happyGenerator()
	st := store.NewInMemoryStore()
	wf := workflow.New(gen, gen, st)

	result, err := wf.Run(context.Background(), models.Request{
		UserInput: "Follow up with the recruiter about my application",
		Metadata:  map[string]string{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RunID == "" {
		t.Error("run id missing")
	}
	if result.Intent != models.IntentFollowUp || result.IntentSource != models.SourceModel {
		t.Errorf("intent = %q (source %q)", result.Intent, result.IntentSource)
	}
	if result.ToneParams.ToneLabel != "neutral" {
		t.Errorf("tone = %q", result.ToneParams.ToneLabel)
	}
	if !strings.Contains(result.Draft, "Just checking in") {
		t.Errorf("draft lost: %q", result.Draft)
	}
	if result.ValidationReport.Status != models.ValidationPass {
		t.Errorf("status = %q", result.ValidationReport.Status)
	}
	if result.UserID != "u1" {
		t.Errorf("user id = %q", result.UserID)
	}
	if result.RequiresClarification {
		t.Error("happy path should not require clarification")
	}

	// Memory persisted under the recipient's email key.
	summary, err := st.GetPastSummary("u1", "email:sam@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.IsEmpty() {
		t.Error("PASS run should persist a recipient summary")
	}

	// Node order: every agent exactly once.
	want := []string{
		testutil.MarkerParser,
		testutil.MarkerIntent,
		testutil.MarkerTone,
		testutil.MarkerDraft,
		testutil.MarkerPersonalizer,
		testutil.MarkerValidator,
		testutil.MarkerMemory,
	}
	if len(gen.Calls) != len(want) {
		t.Fatalf("expected %d agent calls, got %v", len(want), gen.Calls)
	}
	for i, marker := range want {
		if gen.Calls[i] != marker {
			t.Errorf("call %d = %q, want %q", i, gen.Calls[i], marker)
		}
	}
}

func TestRunClarificationEndsEarly(t *testing.T) {
	gen := testutil.NewScriptedGenerator().
		Script(testutil.MarkerParser, `{"requires_clarification": true, "clarification_questions": ["Who is the recipient?"]}`)
	wf := workflow.New(gen, gen, store.NewInMemoryStore())

	result, err := wf.Run(context.Background(), models.Request{UserInput: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.RequiresClarification {
		t.Fatal("expected clarification")
	}
	if len(result.ClarificationQuestions) != 1 || result.ClarificationQuestions[0] != "Who is the recipient?" {
		t.Errorf("questions = %v", result.ClarificationQuestions)
	}
	if result.Draft != "" {
		t.Errorf("no draft should be produced, got %q", result.Draft)
	}
	if len(gen.Calls) != 1 {
		t.Errorf("only the parser should run, got calls %v", gen.Calls)
	}
}

func TestRunRetryLoopExhaustsAndStops(t *testing.T) {
	gen := testutil.NewScriptedGenerator().
		Script(testutil.MarkerParser, parserOK).
		Script(testutil.MarkerIntent, `{"intent": "follow_up", "confidence": 0.9}`).
		Script(testutil.MarkerTone, toneOK).
		Script(testutil.MarkerDraft, "draft one", "draft two").
		Script(testutil.MarkerPersonalizer, `{"personalized_draft": "", "memory_updates": {}}`).
		Script(testutil.MarkerValidator,
			`{"status": "FAIL", "summary": "too wordy", "issues": [], "revision_instructions": "Cut it down.", "constraint_resolution": {"add_must_avoid": ["flowery language"]}}`,
			`{"status": "FAIL", "summary": "still too wordy", "issues": [], "revision_instructions": "Cut further."}`)

	st := store.NewInMemoryStore()
	wf := workflow.New(gen, gen, st)

	result, err := wf.Run(context.Background(), models.Request{
		UserInput: "Follow up with the recruiter",
		Metadata:  map[string]string{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ValidationReport.Status != models.ValidationFail {
		t.Errorf("final status = %q", result.ValidationReport.Status)
	}
	if got := markerCount(gen, testutil.MarkerDraft); got != 2 {
		t.Errorf("draft writer should run twice, ran %d times", got)
	}
	if got := markerCount(gen, testutil.MarkerValidator); got != 2 {
		t.Errorf("validator should run twice, ran %d times", got)
	}
	if markerCount(gen, testutil.MarkerMemory) != 0 {
		t.Error("failed runs must not call the memory agent")
	}

	// The exhausted run still returns its last draft.
	if result.Draft != "draft two" {
		t.Errorf("final draft = %q", result.Draft)
	}

	// Memory store untouched.
	summary, _ := st.GetPastSummary("u1", "email:sam@example.com")
	if !summary.IsEmpty() {
		t.Errorf("failed run persisted a summary: %+v", summary)
	}
}

func TestRunBlockedBypassesMemory(t *testing.T) {
	gen := testutil.NewScriptedGenerator().
		Script(testutil.MarkerParser, parserOK).
		Script(testutil.MarkerIntent, `{"intent": "request", "confidence": 0.8}`).
		Script(testutil.MarkerTone, toneOK).
		Script(testutil.MarkerDraft, "hostile draft").
		Script(testutil.MarkerPersonalizer, `{"personalized_draft": "", "memory_updates": {}}`).
		Script(testutil.MarkerValidator, `{"status": "BLOCKED", "summary": "harassment", "user_message": "This request cannot be drafted.", "issues": [{"category": "policy", "severity": "high", "detail": "hostile content"}]}`)

	st := store.NewInMemoryStore()
	wf := workflow.New(gen, gen, st)

	result, err := wf.Run(context.Background(), models.Request{
		UserInput: "tell them off",
		Metadata:  map[string]string{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ValidationReport.Status != models.ValidationBlocked {
		t.Errorf("status = %q", result.ValidationReport.Status)
	}
	if result.ValidationReport.UserMessage == "" {
		t.Error("BLOCKED must carry a user message")
	}
	if markerCount(gen, testutil.MarkerValidator) != 1 {
		t.Error("BLOCKED must not retry")
	}
	if markerCount(gen, testutil.MarkerMemory) != 0 {
		t.Error("BLOCKED must bypass the memory agent")
	}
	summary, _ := st.GetPastSummary("u1", "email:sam@example.com")
	if !summary.IsEmpty() {
		t.Errorf("blocked run persisted a summary: %+v", summary)
	}
}

func TestRunOverridesSkipClassification(t *testing.T) {
	gen := testutil.NewScriptedGenerator().
		Script(testutil.MarkerParser, parserOK).
		Script(testutil.MarkerDraft, "apology draft").
		Script(testutil.MarkerPersonalizer, `{"personalized_draft": "", "memory_updates": {}}`).
		Script(testutil.MarkerValidator, `{"status": "PASS", "summary": "ok"}`).
		Script(testutil.MarkerMemory, `{"summary": {"last_intent": "apology"}}`)

	wf := workflow.New(gen, gen, store.NewInMemoryStore())

	result, err := wf.Run(context.Background(), models.Request{
		UserInput:      "apologize to Sam for the delay",
		ToneOverride:   "apologetic",
		IntentOverride: "apology",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Intent != models.IntentApology || result.IntentSource != models.SourceUI || result.IntentConfidence != 1.0 {
		t.Errorf("intent override not honored: %q (source %q, confidence %v)", result.Intent, result.IntentSource, result.IntentConfidence)
	}
	if result.ToneParams.ToneLabel != "apologetic" || result.ToneSource != models.SourceUI {
		t.Errorf("tone override not honored: %q (source %q)", result.ToneParams.ToneLabel, result.ToneSource)
	}
	if markerCount(gen, testutil.MarkerIntent) != 0 {
		t.Error("intent override must skip classification")
	}
	if markerCount(gen, testutil.MarkerTone) != 0 {
		t.Error("tone override must skip tone generation")
	}
}

func TestRunSentinelOverridesAreIgnored(t *testing.T) {
	gen := happyGenerator()
	wf := workflow.New(gen, gen, store.NewInMemoryStore())

	result, err := wf.Run(context.Background(), models.Request{
		UserInput:      "Follow up with the recruiter",
		ToneOverride:   "auto",
		IntentOverride: "(auto)",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IntentSource != models.SourceModel {
		t.Errorf("sentinel intent override should classify, source = %q", result.IntentSource)
	}
	if result.ToneSource != models.SourceModel {
		t.Errorf("sentinel tone override should style, source = %q", result.ToneSource)
	}
}

func TestRunCancelledContext(t *testing.T) {
	gen := happyGenerator()
	wf := workflow.New(gen, gen, store.NewInMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := wf.Run(ctx, models.Request{UserInput: "hello"}); err == nil {
		t.Fatal("cancelled context should abort the run")
	}
	if len(gen.Calls) != 0 {
		t.Errorf("no agent should run after cancellation, got %v", gen.Calls)
	}
}
