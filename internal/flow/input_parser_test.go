package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

func TestInputParserParsesRequest(t *testing.T) {
	gen := &mockGenerator{response: `{
		"requires_clarification": false,
		"clarification_questions": [],
		"parsed_input": {
			"primary_request": " Follow up on my application ",
			"recipient": {"name": "Sam", "role": "recruiter", "email": "sam@example.com"},
			"context": "Interviewed last Tuesday",
			"ask": "Ask for a status update"
		},
		"constraints": {"length": "short", "must_include": ["the role name"]}
	}`}
	p := NewInputParser(gen)

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{RawInput: "follow up with Sam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta.RequiresClarification == nil || *delta.RequiresClarification {
		t.Error("well-formed request should not require clarification")
	}
	if delta.ParsedInput.PrimaryRequest != "Follow up on my application" {
		t.Errorf("primary request not trimmed: %q", delta.ParsedInput.PrimaryRequest)
	}
	if delta.ParsedInput.Recipient.Email != "sam@example.com" {
		t.Errorf("recipient email lost: %+v", delta.ParsedInput.Recipient)
	}
	if delta.Constraints.Length != "short" || len(delta.Constraints.MustInclude) != 1 {
		t.Errorf("constraints not carried: %+v", delta.Constraints)
	}
}

func TestInputParserSeedConstraintsWin(t *testing.T) {
	gen := &mockGenerator{response: `{
		"parsed_input": {"primary_request": "Send an update"},
		"constraints": {"length": "long", "audience": "parsed-audience"}
	}`}
	p := NewInputParser(gen)
	seed := models.Constraints{
		Length: "short",
		Extra:  map[string]string{"user_id": "u1"},
	}

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{RawInput: "update", Constraints: seed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta.Constraints.Length != "short" {
		t.Errorf("seed length should win, got %q", delta.Constraints.Length)
	}
	if delta.Constraints.Audience != "parsed-audience" {
		t.Errorf("parsed audience should survive when seed is empty, got %q", delta.Constraints.Audience)
	}
	if delta.Constraints.Extra["user_id"] != "u1" {
		t.Error("metadata passthrough lost during merge")
	}
}

func TestInputParserMetadataOverridesRecipient(t *testing.T) {
	gen := &mockGenerator{response: `{
		"parsed_input": {"primary_request": "Reach out", "recipient": {"name": "wrong name"}}
	}`}
	p := NewInputParser(gen)
	state := models.WorkflowState{
		RawInput:    "reach out",
		Constraints: models.Constraints{Extra: map[string]string{"recipient_name": "Dr. Chen", "recipient_email": "chen@example.org"}},
	}

	delta, err := p.Run(context.Background(), testLogger(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta.ParsedInput.Recipient.Name != "Dr. Chen" {
		t.Errorf("metadata recipient name should win, got %q", delta.ParsedInput.Recipient.Name)
	}
	if delta.ParsedInput.Recipient.Email != "chen@example.org" {
		t.Errorf("metadata recipient email should win, got %q", delta.ParsedInput.Recipient.Email)
	}
}

func TestInputParserClarificationOnEmptyPrimaryRequest(t *testing.T) {
	gen := &mockGenerator{response: `{"parsed_input": {"primary_request": "   "}}`}
	p := NewInputParser(gen)

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{RawInput: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta.RequiresClarification == nil || !*delta.RequiresClarification {
		t.Fatal("empty primary request should require clarification")
	}
	if len(delta.ClarificationQuestions) == 0 {
		t.Error("clarification questions should be synthesized")
	}
}

func TestInputParserClarificationOnMalformedOutput(t *testing.T) {
	gen := &mockGenerator{response: "sorry, I can't help with that"}
	p := NewInputParser(gen)

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{RawInput: "hello"})
	if err != nil {
		t.Fatalf("malformed output should degrade, not error: %v", err)
	}
	if delta.RequiresClarification == nil || !*delta.RequiresClarification {
		t.Fatal("malformed output should require clarification")
	}
	if len(delta.ClarificationQuestions) != len(defaultClarificationQuestions) {
		t.Errorf("expected default questions, got %v", delta.ClarificationQuestions)
	}
}

func TestInputParserGenerationErrorPropagates(t *testing.T) {
	gen := &mockGenerator{err: errors.New("api down")}
	p := NewInputParser(gen)

	_, err := p.Run(context.Background(), testLogger(), models.WorkflowState{RawInput: "hello"})
	if err == nil {
		t.Fatal("generator failure should propagate as an error")
	}
}
