// Package store provides storage backends for DraftPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/DraftPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists templates, profiles, and summaries in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is the database file
// path; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetBestTemplate walks the candidate fallback tiers.
func (s *SQLiteStore) GetBestTemplate(intent, toneLabel string, constraints models.Constraints) (*models.Template, error) {
	for _, cand := range templateCandidates(intent, toneLabel) {
		row := s.db.QueryRow(
			`SELECT template_id, intent, tone_label, name, body, meta_json FROM email_templates WHERE intent = ? AND tone_label = ? LIMIT 1`,
			cand[0], cand[1],
		)
		tpl, err := scanTemplate(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			slog.Error("SQLiteStore GetBestTemplate query failed", "error", err, "intent", cand[0], "tone_label", cand[1])
			return nil, fmt.Errorf("failed to query template: %w", err)
		}
		slog.Debug("SQLiteStore GetBestTemplate matched", "template_id", tpl.TemplateID, "intent", cand[0], "tone_label", cand[1])
		return tpl, nil
	}
	slog.Debug("SQLiteStore GetBestTemplate no match", "intent", intent, "tone_label", toneLabel)
	return nil, nil
}

// UpsertTemplate inserts or replaces a template by id.
func (s *SQLiteStore) UpsertTemplate(tpl models.Template) error {
	metaJSON, err := marshalMeta(tpl.Meta)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO email_templates(template_id, intent, tone_label, name, body, meta_json, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(template_id) DO UPDATE SET
		   intent=excluded.intent,
		   tone_label=excluded.tone_label,
		   name=excluded.name,
		   body=excluded.body,
		   meta_json=excluded.meta_json,
		   updated_at=datetime('now')`,
		tpl.TemplateID, tpl.Intent, tpl.ToneLabel, tpl.Name, tpl.Body, metaJSON,
	)
	if err != nil {
		slog.Error("SQLiteStore UpsertTemplate failed", "error", err, "template_id", tpl.TemplateID)
		return fmt.Errorf("failed to upsert template %s: %w", tpl.TemplateID, err)
	}
	slog.Debug("SQLiteStore UpsertTemplate succeeded", "template_id", tpl.TemplateID)
	return nil
}

// GetProfile returns the stored profile, or an empty map when absent.
func (s *SQLiteStore) GetProfile(userID string) (map[string]any, error) {
	row := s.db.QueryRow(`SELECT profile_json FROM user_profiles WHERE user_id = ? LIMIT 1`, userID)
	var profileJSON string
	err := row.Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	return unmarshalProfile(profileJSON), nil
}

// UpsertProfile inserts or replaces a profile by user id.
func (s *SQLiteStore) UpsertProfile(userID string, profile map[string]any) error {
	profileJSON, err := marshalJSONMap(profile)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO user_profiles(user_id, profile_json, updated_at)
		 VALUES(?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET
		   profile_json=excluded.profile_json,
		   updated_at=datetime('now')`,
		userID, profileJSON,
	)
	if err != nil {
		slog.Error("SQLiteStore UpsertProfile failed", "error", err, "user_id", userID)
		return fmt.Errorf("failed to upsert profile for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore UpsertProfile succeeded", "user_id", userID)
	return nil
}

// GetPastSummary returns the stored summary, or a zero value when absent.
func (s *SQLiteStore) GetPastSummary(userID, recipientKey string) (models.RecipientSummary, error) {
	row := s.db.QueryRow(
		`SELECT summary_json FROM email_summaries WHERE user_id = ? AND recipient_key = ? LIMIT 1`,
		userID, recipientKey,
	)
	var summaryJSON string
	err := row.Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return models.RecipientSummary{}, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPastSummary query failed", "error", err, "user_id", userID, "recipient_key", recipientKey)
		return models.RecipientSummary{}, fmt.Errorf("failed to query summary: %w", err)
	}
	return unmarshalSummary(summaryJSON), nil
}

// UpsertSummary inserts or replaces a summary by composite key.
func (s *SQLiteStore) UpsertSummary(userID, recipientKey string, summary models.RecipientSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO email_summaries(user_id, recipient_key, summary_json)
		 VALUES(?, ?, ?)
		 ON CONFLICT(user_id, recipient_key) DO UPDATE SET
		   summary_json=excluded.summary_json,
		   updated_at=datetime('now')`,
		userID, recipientKey, string(summaryJSON),
	)
	if err != nil {
		slog.Error("SQLiteStore UpsertSummary failed", "error", err, "user_id", userID, "recipient_key", recipientKey)
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	slog.Debug("SQLiteStore UpsertSummary succeeded", "user_id", userID, "recipient_key", recipientKey)
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
