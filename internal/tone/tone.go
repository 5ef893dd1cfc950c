// Package tone provides the fixed whitelist of email tone labels, numeric
// parameter presets, clamping, and prompt-guide construction for the tone
// stylist and draft writer nodes.
package tone

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

// NeutralLabel is the fallback tone when nothing else applies.
const NeutralLabel = "neutral"

// KnownLabels is the hard-coded set of tone labels the pipeline styles for.
var KnownLabels = map[string]bool{
	"neutral":    true,
	"formal":     true,
	"friendly":   true,
	"concise":    true,
	"apologetic": true,
	"assertive":  true,
	"casual":     true,
	"warm":       true,
	"direct":     true,
}

// presets maps each known label to default formality/warmth/directness.
var presets = map[string][3]int{
	"neutral":    {70, 45, 65},
	"formal":     {90, 35, 55},
	"friendly":   {45, 85, 55},
	"concise":    {65, 40, 85},
	"apologetic": {75, 70, 40},
	"assertive":  {70, 35, 90},
	"casual":     {25, 70, 60},
	"warm":       {55, 90, 45},
	"direct":     {60, 40, 95},
}

// NormalizeLabel lowercases and trims a tone label, mapping blank input to
// neutral. Unknown labels are kept verbatim: template lookup falls back to
// neutral-tier templates for them.
func NormalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return NeutralLabel
	}
	return l
}

// DefaultParams returns the preset tone parameters for a label. Unknown
// labels get the neutral preset with low confidence.
func DefaultParams(label string) models.ToneParams {
	l := NormalizeLabel(label)
	p, ok := presets[l]
	confidence := 0.3
	if ok {
		confidence = 0.8
	} else {
		p = presets[NeutralLabel]
	}
	return models.ToneParams{
		ToneLabel:  l,
		Formality:  p[0],
		Warmth:     p[1],
		Directness: p[2],
		Confidence: confidence,
	}
}

// NeutralParams is the soft-failure fallback for the tone stylist.
func NeutralParams() models.ToneParams {
	return models.ToneParams{
		ToneLabel:  NeutralLabel,
		Formality:  70,
		Warmth:     45,
		Directness: 65,
		Confidence: 0.3,
	}
}

// Clamp normalizes the label and forces numeric axes into [0,100] and
// confidence into [0,1].
func Clamp(p models.ToneParams) models.ToneParams {
	p.ToneLabel = NormalizeLabel(p.ToneLabel)
	p.Formality = clampInt(p.Formality)
	p.Warmth = clampInt(p.Warmth)
	p.Directness = clampInt(p.Directness)
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	return p
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BuildToneGuide produces a compact instruction snippet for injection into
// drafting system prompts.
func BuildToneGuide(p models.ToneParams) string {
	var b strings.Builder
	b.WriteString("<TONE POLICY>\n")
	fmt.Fprintf(&b, "Target tone: %s.\n", NormalizeLabel(p.ToneLabel))
	fmt.Fprintf(&b, "- Formality %d/100: %s\n", p.Formality, axisHint(p.Formality, "casual diction is fine", "professional register, no slang"))
	fmt.Fprintf(&b, "- Warmth %d/100: %s\n", p.Warmth, axisHint(p.Warmth, "stay businesslike", "be personable and considerate"))
	fmt.Fprintf(&b, "- Directness %d/100: %s\n", p.Directness, axisHint(p.Directness, "soften requests", "state the ask plainly and early"))
	b.WriteString("- NEVER mirror hostility, sarcasm, or unsafe language.\n")
	b.WriteString("</TONE POLICY>")
	return b.String()
}

func axisHint(v int, low, high string) string {
	if v >= 60 {
		return high
	}
	return low
}

// SuggestClosing returns the deterministic closing phrase for a tone label.
func SuggestClosing(label string) string {
	switch NormalizeLabel(label) {
	case "formal":
		return "Thank you for your time."
	case "friendly":
		return "Thanks so much!"
	case "apologetic":
		return "Thank you for your understanding."
	case "assertive":
		return "Thanks in advance for your help."
	default:
		return "Thanks,"
	}
}

// SuggestGreeting returns the deterministic greeting for a tone label and
// optional recipient name.
func SuggestGreeting(label, recipientName string) string {
	name := strings.TrimSpace(recipientName)
	if name != "" {
		return fmt.Sprintf("Hi %s,", name)
	}
	if NormalizeLabel(label) == "formal" {
		return "Hello,"
	}
	return "Hi,"
}
