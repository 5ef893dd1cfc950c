// Package store provides storage backends for DraftPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/DraftPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum connection reuse time.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists templates, profiles, and summaries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetBestTemplate walks the candidate fallback tiers.
func (s *PostgresStore) GetBestTemplate(intent, toneLabel string, constraints models.Constraints) (*models.Template, error) {
	for _, cand := range templateCandidates(intent, toneLabel) {
		row := s.db.QueryRow(
			`SELECT template_id, intent, tone_label, name, body, meta_json FROM email_templates WHERE intent = $1 AND tone_label = $2 LIMIT 1`,
			cand[0], cand[1],
		)
		tpl, err := scanTemplate(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			slog.Error("PostgresStore GetBestTemplate query failed", "error", err, "intent", cand[0], "tone_label", cand[1])
			return nil, fmt.Errorf("failed to query template: %w", err)
		}
		slog.Debug("PostgresStore GetBestTemplate matched", "template_id", tpl.TemplateID, "intent", cand[0], "tone_label", cand[1])
		return tpl, nil
	}
	slog.Debug("PostgresStore GetBestTemplate no match", "intent", intent, "tone_label", toneLabel)
	return nil, nil
}

// UpsertTemplate inserts or replaces a template by id.
func (s *PostgresStore) UpsertTemplate(tpl models.Template) error {
	metaJSON, err := marshalMeta(tpl.Meta)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO email_templates(template_id, intent, tone_label, name, body, meta_json, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT(template_id) DO UPDATE SET
		   intent=excluded.intent,
		   tone_label=excluded.tone_label,
		   name=excluded.name,
		   body=excluded.body,
		   meta_json=excluded.meta_json,
		   updated_at=now()`,
		tpl.TemplateID, tpl.Intent, tpl.ToneLabel, tpl.Name, tpl.Body, metaJSON,
	)
	if err != nil {
		slog.Error("PostgresStore UpsertTemplate failed", "error", err, "template_id", tpl.TemplateID)
		return fmt.Errorf("failed to upsert template %s: %w", tpl.TemplateID, err)
	}
	slog.Debug("PostgresStore UpsertTemplate succeeded", "template_id", tpl.TemplateID)
	return nil
}

// GetProfile returns the stored profile, or an empty map when absent.
func (s *PostgresStore) GetProfile(userID string) (map[string]any, error) {
	row := s.db.QueryRow(`SELECT profile_json FROM user_profiles WHERE user_id = $1 LIMIT 1`, userID)
	var profileJSON string
	err := row.Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	return unmarshalProfile(profileJSON), nil
}

// UpsertProfile inserts or replaces a profile by user id.
func (s *PostgresStore) UpsertProfile(userID string, profile map[string]any) error {
	profileJSON, err := marshalJSONMap(profile)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO user_profiles(user_id, profile_json, updated_at)
		 VALUES($1, $2, now())
		 ON CONFLICT(user_id) DO UPDATE SET
		   profile_json=excluded.profile_json,
		   updated_at=now()`,
		userID, profileJSON,
	)
	if err != nil {
		slog.Error("PostgresStore UpsertProfile failed", "error", err, "user_id", userID)
		return fmt.Errorf("failed to upsert profile for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore UpsertProfile succeeded", "user_id", userID)
	return nil
}

// GetPastSummary returns the stored summary, or a zero value when absent.
func (s *PostgresStore) GetPastSummary(userID, recipientKey string) (models.RecipientSummary, error) {
	row := s.db.QueryRow(
		`SELECT summary_json FROM email_summaries WHERE user_id = $1 AND recipient_key = $2 LIMIT 1`,
		userID, recipientKey,
	)
	var summaryJSON string
	err := row.Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return models.RecipientSummary{}, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPastSummary query failed", "error", err, "user_id", userID, "recipient_key", recipientKey)
		return models.RecipientSummary{}, fmt.Errorf("failed to query summary: %w", err)
	}
	return unmarshalSummary(summaryJSON), nil
}

// UpsertSummary inserts or replaces a summary by composite key.
func (s *PostgresStore) UpsertSummary(userID, recipientKey string, summary models.RecipientSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO email_summaries(user_id, recipient_key, summary_json)
		 VALUES($1, $2, $3)
		 ON CONFLICT(user_id, recipient_key) DO UPDATE SET
		   summary_json=excluded.summary_json,
		   updated_at=now()`,
		userID, recipientKey, string(summaryJSON),
	)
	if err != nil {
		slog.Error("PostgresStore UpsertSummary failed", "error", err, "user_id", userID, "recipient_key", recipientKey)
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	slog.Debug("PostgresStore UpsertSummary succeeded", "user_id", userID, "recipient_key", recipientKey)
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
