package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/store"
)

func TestPersonalizerAppliesProfile(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.UpsertProfile("u1", map[string]any{"signature": "Alex Chen"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen := &mockGenerator{response: `{"personalized_draft": "Hi Sam,\n\nThanks,\nAlex Chen", "memory_updates": {"signature_used": true}}`}
	p := NewPersonalizer(gen, st)
	state := models.WorkflowState{Draft: "Hi Sam,\n\nThanks,\n[Your Name]", UserID: "u1"}

	delta, err := p.Run(context.Background(), testLogger(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(*delta.PersonalizedDraft, "Alex Chen") {
		t.Errorf("personalization not applied: %q", *delta.PersonalizedDraft)
	}
	if len(delta.MemoryUpdates) != 1 {
		t.Errorf("memory updates not carried: %v", delta.MemoryUpdates)
	}
	if delta.UserContext["signature"] != "Alex Chen" {
		t.Errorf("profile not attached as user context: %v", delta.UserContext)
	}

	// The profile payload must reach the generator.
	var userPayload string
	for _, m := range gen.lastMsgs {
		if m.OfUser != nil {
			userPayload += m.OfUser.Content.OfString.Value
		}
	}
	if !strings.Contains(userPayload, "Alex Chen") {
		t.Error("profile missing from generator payload")
	}
}

func TestPersonalizerMalformedOutputKeepsDraft(t *testing.T) {
	gen := &mockGenerator{response: "sure, here's the email: Hi Sam"}
	p := NewPersonalizer(gen, store.NewInMemoryStore())
	state := models.WorkflowState{Draft: "original draft"}

	delta, err := p.Run(context.Background(), testLogger(), state)
	if err != nil {
		t.Fatalf("malformed output should degrade, not error: %v", err)
	}
	if *delta.PersonalizedDraft != "original draft" {
		t.Errorf("expected original draft kept, got %q", *delta.PersonalizedDraft)
	}
	if delta.MemoryUpdates == nil || len(delta.MemoryUpdates) != 0 {
		t.Errorf("expected empty memory updates, got %v", delta.MemoryUpdates)
	}
}

func TestPersonalizerEmptyOutputKeepsDraft(t *testing.T) {
	gen := &mockGenerator{response: `{"personalized_draft": "", "memory_updates": {}}`}
	p := NewPersonalizer(gen, store.NewInMemoryStore())

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{Draft: "keep me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *delta.PersonalizedDraft != "keep me" {
		t.Errorf("empty personalization should keep the draft, got %q", *delta.PersonalizedDraft)
	}
}

func TestPersonalizerSkipsWithoutDraft(t *testing.T) {
	gen := &mockGenerator{}
	p := NewPersonalizer(gen, store.NewInMemoryStore())

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 0 {
		t.Error("no draft means no generation")
	}
	if delta.PersonalizedDraft == nil || *delta.PersonalizedDraft != "" {
		t.Error("skip should clear the personalized draft")
	}
}

func TestPersonalizerDefaultsUserID(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.UpsertProfile(models.DefaultUserID, map[string]any{"name": "Dana"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen := &mockGenerator{response: `{"personalized_draft": "done", "memory_updates": {}}`}
	p := NewPersonalizer(gen, st)

	delta, err := p.Run(context.Background(), testLogger(), models.WorkflowState{Draft: "draft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta.UserContext["name"] != "Dana" {
		t.Errorf("default user profile not loaded: %v", delta.UserContext)
	}
}
