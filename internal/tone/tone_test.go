package tone

import (
	"strings"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"":          NeutralLabel,
		"  Formal ": "formal",
		"FRIENDLY":  "friendly",
		"snarky":    "snarky",
	}
	for in, want := range cases {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultParamsKnownLabel(t *testing.T) {
	p := DefaultParams("formal")
	if p.ToneLabel != "formal" || p.Formality != 90 || p.Warmth != 35 || p.Directness != 55 {
		t.Errorf("unexpected formal preset: %+v", p)
	}
	if p.Confidence != 0.8 {
		t.Errorf("known label should get confidence 0.8, got %v", p.Confidence)
	}
}

func TestDefaultParamsUnknownLabelFallsBackToNeutralPreset(t *testing.T) {
	p := DefaultParams("snarky")
	if p.ToneLabel != "snarky" {
		t.Errorf("unknown label should be kept verbatim, got %q", p.ToneLabel)
	}
	neutral := NeutralParams()
	if p.Formality != neutral.Formality || p.Warmth != neutral.Warmth || p.Directness != neutral.Directness {
		t.Errorf("unknown label should use neutral axes, got %+v", p)
	}
	if p.Confidence != 0.3 {
		t.Errorf("unknown label should get confidence 0.3, got %v", p.Confidence)
	}
}

func TestClampForcesRanges(t *testing.T) {
	p := Clamp(models.ToneParams{ToneLabel: " Formal ", Formality: 150, Warmth: -10, Directness: 50, Confidence: 1.7})
	if p.ToneLabel != "formal" {
		t.Errorf("expected normalized label, got %q", p.ToneLabel)
	}
	if p.Formality != 100 || p.Warmth != 0 || p.Directness != 50 {
		t.Errorf("axes not clamped: %+v", p)
	}
	if p.Confidence != 1 {
		t.Errorf("confidence not clamped: %v", p.Confidence)
	}
}

func TestBuildToneGuideMentionsAxes(t *testing.T) {
	guide := BuildToneGuide(DefaultParams("assertive"))
	for _, want := range []string{"TONE POLICY", "assertive", "Formality 70/100", "Directness 90/100"} {
		if !strings.Contains(guide, want) {
			t.Errorf("tone guide missing %q:\n%s", want, guide)
		}
	}
}

func TestSuggestClosing(t *testing.T) {
	cases := map[string]string{
		"formal":     "Thank you for your time.",
		"friendly":   "Thanks so much!",
		"apologetic": "Thank you for your understanding.",
		"neutral":    "Thanks,",
		"snarky":     "Thanks,",
	}
	for label, want := range cases {
		if got := SuggestClosing(label); got != want {
			t.Errorf("SuggestClosing(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestSuggestGreeting(t *testing.T) {
	if got := SuggestGreeting("formal", "Ada"); got != "Hi Ada," {
		t.Errorf("named greeting = %q", got)
	}
	if got := SuggestGreeting("formal", ""); got != "Hello," {
		t.Errorf("formal greeting = %q", got)
	}
	if got := SuggestGreeting("friendly", ""); got != "Hi," {
		t.Errorf("default greeting = %q", got)
	}
}
