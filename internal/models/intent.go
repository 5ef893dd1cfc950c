// Package models defines intent classification vocabulary for DraftPipe.
package models

import "strings"

// Closed intent vocabulary. Anything else is coerced to IntentOther.
const (
	IntentOutreach   = "outreach"
	IntentFollowUp   = "follow_up"
	IntentApology    = "apology"
	IntentInfo       = "info"
	IntentRequest    = "request"
	IntentThankYou   = "thank_you"
	IntentScheduling = "scheduling"
	IntentOther      = "other"
)

// KnownIntents is the closed label set accepted from classification.
var KnownIntents = map[string]bool{
	IntentOutreach:   true,
	IntentFollowUp:   true,
	IntentApology:    true,
	IntentInfo:       true,
	IntentRequest:    true,
	IntentThankYou:   true,
	IntentScheduling: true,
	IntentOther:      true,
}

// intentAliases maps common label variants onto the closed set.
var intentAliases = map[string]string{
	"follow up":       IntentFollowUp,
	"follow-up":       IntentFollowUp,
	"followup":        IntentFollowUp,
	"thanks":          IntentThankYou,
	"thank you":       IntentThankYou,
	"thank-you":       IntentThankYou,
	"gratitude":       IntentThankYou,
	"schedule":        IntentScheduling,
	"meeting":         IntentScheduling,
	"introduction":    IntentOutreach,
	"cold_outreach":   IntentOutreach,
	"information":     IntentInfo,
	"update":          IntentInfo,
	"internal_update": IntentInfo,
	"ask":             IntentRequest,
	"sorry":           IntentApology,
}

// NormalizeIntent lowercases, trims, and resolves aliases. It returns the
// canonical label and whether it belongs to the closed set.
func NormalizeIntent(label string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return IntentOther, false
	}
	if alias, ok := intentAliases[l]; ok {
		l = alias
	}
	if KnownIntents[l] {
		return l, true
	}
	return IntentOther, false
}

// overrideSentinels are UI values that mean "no override".
var overrideSentinels = map[string]bool{
	"auto":   true,
	"(auto)": true,
	"none":   true,
}

// IsOverrideSentinel reports whether the given UI override value should be
// treated as absent.
func IsOverrideSentinel(v string) bool {
	return overrideSentinels[strings.ToLower(strings.TrimSpace(v))]
}
