package models

import "testing"

func TestMergeAppendsMessagesWithoutMutatingInput(t *testing.T) {
	s := WorkflowState{
		Conversation: []Message{{Role: RoleUser, Content: "hello"}},
		Draft:        "original",
	}
	d := Delta{
		Messages: []Message{{Role: RoleAssistant, Content: "reply"}},
		Draft:    String("updated"),
	}

	out := Merge(s, d)

	if len(out.Conversation) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out.Conversation))
	}
	if out.Draft != "updated" {
		t.Errorf("expected merged draft 'updated', got %q", out.Draft)
	}
	if s.Draft != "original" || len(s.Conversation) != 1 {
		t.Error("Merge mutated the input state")
	}
}

func TestMergeNilFieldsLeaveStateUntouched(t *testing.T) {
	s := WorkflowState{
		Intent:           IntentFollowUp,
		IntentConfidence: 0.9,
		RetryCount:       1,
		IsValid:          true,
	}

	out := Merge(s, Delta{})

	if out.Intent != IntentFollowUp || out.IntentConfidence != 0.9 || out.RetryCount != 1 || !out.IsValid {
		t.Errorf("empty delta changed state: %+v", out)
	}
}

func TestMergeZeroValuePointersOverwrite(t *testing.T) {
	s := WorkflowState{PersonalizedDraft: "personal", IsValid: true}

	out := Merge(s, Delta{PersonalizedDraft: String(""), IsValid: Bool(false)})

	if out.PersonalizedDraft != "" {
		t.Errorf("expected personalized draft cleared, got %q", out.PersonalizedDraft)
	}
	if out.IsValid {
		t.Error("expected IsValid false")
	}
}

func TestFinalDraftPrefersPersonalized(t *testing.T) {
	s := WorkflowState{Draft: "base", PersonalizedDraft: "personal"}
	if got := s.FinalDraft(); got != "personal" {
		t.Errorf("expected personalized draft, got %q", got)
	}
	s.PersonalizedDraft = ""
	if got := s.FinalDraft(); got != "base" {
		t.Errorf("expected base draft, got %q", got)
	}
}

func TestNormalizeIntent(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		known bool
	}{
		{"follow_up", IntentFollowUp, true},
		{"Follow Up", IntentFollowUp, true},
		{"FOLLOW-UP", IntentFollowUp, true},
		{"thank you", IntentThankYou, true},
		{"scheduling", IntentScheduling, true},
		{"other", IntentOther, true},
		{"unknown_label", IntentOther, false},
		{"", IntentOther, false},
	}
	for _, c := range cases {
		got, known := NormalizeIntent(c.in)
		if got != c.want || known != c.known {
			t.Errorf("NormalizeIntent(%q) = (%q, %v), want (%q, %v)", c.in, got, known, c.want, c.known)
		}
	}
}

func TestIsOverrideSentinel(t *testing.T) {
	for _, v := range []string{"auto", "AUTO", "(auto)", "none"} {
		if !IsOverrideSentinel(v) {
			t.Errorf("expected %q to be a sentinel", v)
		}
	}
	if IsOverrideSentinel("formal") {
		t.Error("'formal' should not be a sentinel")
	}
}

func TestHasHighSeverityIssue(t *testing.T) {
	r := ValidationReport{Issues: []ValidationIssue{
		{Severity: SeverityLow},
		{Severity: "HIGH"},
	}}
	if !r.HasHighSeverityIssue() {
		t.Error("expected high severity issue to be detected case-insensitively")
	}

	r = ValidationReport{Issues: []ValidationIssue{{Severity: SeverityMedium}}}
	if r.HasHighSeverityIssue() {
		t.Error("medium severity should not register as high")
	}
}

func TestConstraintsCloneIsIndependent(t *testing.T) {
	c := Constraints{
		MustInclude: []string{"deadline"},
		MustAvoid:   []string{"pricing"},
		Extra:       map[string]string{"user_id": "u1"},
	}

	clone := c.Clone()
	clone.MustInclude[0] = "changed"
	clone.Extra["user_id"] = "u2"

	if c.MustInclude[0] != "deadline" {
		t.Error("Clone shares the MustInclude slice")
	}
	if c.Extra["user_id"] != "u1" {
		t.Error("Clone shares the Extra map")
	}
}

func TestConstraintResolutionIsZero(t *testing.T) {
	var res ConstraintResolution
	if !res.IsZero() {
		t.Error("empty resolution should be zero")
	}
	res.AddMustAvoid = []string{"jargon"}
	if res.IsZero() {
		t.Error("resolution with avoid entries should not be zero")
	}
}

func TestRecipientIsEmpty(t *testing.T) {
	if !(Recipient{}).IsEmpty() {
		t.Error("zero recipient should be empty")
	}
	if (Recipient{Name: "Ada"}).IsEmpty() {
		t.Error("named recipient should not be empty")
	}
}
