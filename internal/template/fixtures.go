package template

import "github.com/BTreeMap/DraftPipe/internal/models"

// SeedTemplates are the built-in starter templates loaded by the seeding
// command. Bodies use the standard placeholder vocabulary.
var SeedTemplates = []models.Template{
	{
		TemplateID: "follow_up_neutral_v1",
		Intent:     models.IntentFollowUp,
		ToneLabel:  "neutral",
		Name:       "Follow-up (Neutral)",
		Body: "Subject: {{subject}}\n\n" +
			"{{greeting}}\n\n" +
			"{{context}}\n\n" +
			"{{ask}}\n\n" +
			"{{closing}}\n" +
			"{{signature}}\n",
		Meta: map[string]string{"version": "1"},
	},
	{
		TemplateID: "request_formal_v1",
		Intent:     models.IntentRequest,
		ToneLabel:  "formal",
		Name:       "Request (Formal)",
		Body: "Subject: {{subject}}\n\n" +
			"{{greeting}}\n\n" +
			"{{context}}\n\n" +
			"Would you be able to {{ask}}?\n\n" +
			"{{closing}}\n" +
			"{{signature}}\n",
		Meta: map[string]string{"version": "1"},
	},
	{
		TemplateID: "apology_apologetic_v1",
		Intent:     models.IntentApology,
		ToneLabel:  "apologetic",
		Name:       "Apology (Apologetic)",
		Body: "Subject: {{subject}}\n\n" +
			"{{greeting}}\n\n" +
			"I'm sorry for {{context}}.\n\n" +
			"{{ask}}\n\n" +
			"{{closing}}\n" +
			"{{signature}}\n",
		Meta: map[string]string{"version": "1"},
	},
	{
		TemplateID: "outreach_friendly_v1",
		Intent:     models.IntentOutreach,
		ToneLabel:  "friendly",
		Name:       "Outreach (Friendly)",
		Body: "Subject: {{subject}}\n\n" +
			"{{greeting}}\n\n" +
			"{{context}}\n\n" +
			"{{ask}}\n\n" +
			"{{closing}}\n" +
			"{{signature}}\n",
		Meta: map[string]string{"version": "1"},
	},
	{
		TemplateID: "other_neutral_v1",
		Intent:     models.IntentOther,
		ToneLabel:  "neutral",
		Name:       "General (Neutral)",
		Body: "Subject: {{subject}}\n\n" +
			"{{greeting}}\n\n" +
			"{{context}}\n\n" +
			"{{ask}}\n\n" +
			"{{closing}}\n" +
			"{{signature}}\n",
		Meta: map[string]string{"version": "1"},
	},
}
