// Package store provides storage backends for DraftPipe.
//
// Three backends implement the same interface: SQLite and PostgreSQL for
// persistent deployments, and an in-memory store for tests. All backends
// share the template fallback lookup order and upsert semantics
// (last-write-wins by key, updated_at refreshed on every write).
package store

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

// Store defines persistence operations for templates, user profiles, and
// per-recipient summaries.
type Store interface {
	// GetBestTemplate returns the first template matching the candidate
	// order (intent,tone) -> (intent,"neutral") -> ("other",tone) ->
	// ("other","neutral"), or nil when no tier matches.
	GetBestTemplate(intent, toneLabel string, constraints models.Constraints) (*models.Template, error)
	UpsertTemplate(tpl models.Template) error

	// GetProfile returns the stored profile, or an empty map when absent.
	GetProfile(userID string) (map[string]any, error)
	UpsertProfile(userID string, profile map[string]any) error

	// GetPastSummary returns the stored summary, or a zero value when
	// absent.
	GetPastSummary(userID, recipientKey string) (models.RecipientSummary, error)
	UpsertSummary(userID, recipientKey string, summary models.RecipientSummary) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN string as "postgres" or "sqlite".
// PostgreSQL DSNs use URL or key=value forms; everything else is treated
// as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// templateCandidates is the fixed selection fallback order.
func templateCandidates(intent, toneLabel string) [][2]string {
	return [][2]string{
		{intent, toneLabel},
		{intent, "neutral"},
		{models.IntentOther, toneLabel},
		{models.IntentOther, "neutral"},
	}
}

// InMemoryStore is a map-backed store for tests and ephemeral runs.
type InMemoryStore struct {
	mu        sync.Mutex
	templates map[string]models.Template            // by template_id
	profiles  map[string]map[string]any             // by user_id
	summaries map[string]models.RecipientSummary    // by user_id + "\x00" + recipient_key
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		templates: make(map[string]models.Template),
		profiles:  make(map[string]map[string]any),
		summaries: make(map[string]models.RecipientSummary),
	}
}

// GetBestTemplate walks the candidate tiers over the stored templates.
func (s *InMemoryStore) GetBestTemplate(intent, toneLabel string, constraints models.Constraints) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cand := range templateCandidates(intent, toneLabel) {
		for _, tpl := range s.templates {
			if tpl.Intent == cand[0] && tpl.ToneLabel == cand[1] {
				out := tpl
				return &out, nil
			}
		}
	}
	slog.Debug("InMemoryStore no template match", "intent", intent, "tone_label", toneLabel)
	return nil, nil
}

// UpsertTemplate inserts or replaces a template by id.
func (s *InMemoryStore) UpsertTemplate(tpl models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.TemplateID] = tpl
	return nil
}

// GetProfile returns a copy of the stored profile, or an empty map.
func (s *InMemoryStore) GetProfile(userID string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[userID]
	out := make(map[string]any, len(stored))
	if ok {
		for k, v := range stored {
			out[k] = v
		}
	}
	return out, nil
}

// UpsertProfile inserts or replaces a profile by user id.
func (s *InMemoryStore) UpsertProfile(userID string, profile map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(profile))
	for k, v := range profile {
		copied[k] = v
	}
	s.profiles[userID] = copied
	return nil
}

// GetPastSummary returns the stored summary, or a zero value.
func (s *InMemoryStore) GetPastSummary(userID, recipientKey string) (models.RecipientSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries[userID+"\x00"+recipientKey], nil
}

// UpsertSummary inserts or replaces a summary by composite key.
func (s *InMemoryStore) UpsertSummary(userID, recipientKey string, summary models.RecipientSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[userID+"\x00"+recipientKey] = summary
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
