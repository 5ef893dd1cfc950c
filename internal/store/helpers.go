package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

// scanTemplate scans one template row from a sql.Row.
func scanTemplate(row *sql.Row) (*models.Template, error) {
	var tpl models.Template
	var metaJSON string
	err := row.Scan(&tpl.TemplateID, &tpl.Intent, &tpl.ToneLabel, &tpl.Name, &tpl.Body, &metaJSON)
	if err != nil {
		return nil, err
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &tpl.Meta); err != nil {
			// Corrupt meta never blocks template use.
			slog.Warn("Failed to parse template meta_json", "error", err, "template_id", tpl.TemplateID)
			tpl.Meta = nil
		}
	}
	return &tpl, nil
}

// marshalMeta serializes template meta, defaulting to an empty object.
func marshalMeta(meta map[string]string) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to serialize template meta: %w", err)
	}
	return string(b), nil
}

// marshalJSONMap serializes a JSON object column, defaulting to "{}".
func marshalJSONMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to serialize json map: %w", err)
	}
	return string(b), nil
}

// unmarshalProfile parses a profile_json column; corrupt rows degrade to an
// empty profile rather than failing the run.
func unmarshalProfile(profileJSON string) map[string]any {
	if profileJSON == "" {
		return map[string]any{}
	}
	var profile map[string]any
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		slog.Warn("Failed to parse profile_json, treating as empty", "error", err)
		return map[string]any{}
	}
	if profile == nil {
		return map[string]any{}
	}
	return profile
}

// unmarshalSummary parses a summary_json column; corrupt rows degrade to a
// zero summary.
func unmarshalSummary(summaryJSON string) models.RecipientSummary {
	if summaryJSON == "" {
		return models.RecipientSummary{}
	}
	var summary models.RecipientSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		slog.Warn("Failed to parse summary_json, treating as empty", "error", err)
		return models.RecipientSummary{}
	}
	return summary
}
