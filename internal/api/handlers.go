// Package api provides HTTP handlers for DraftPipe endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/DraftPipe/internal/models"
)

func (s *Server) draftHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.draftHandler: processing draft request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.draftHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.draftHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		slog.Warn("Server.draftHandler: empty user input")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_input is required"))
		return
	}

	result, err := s.wf.Run(r.Context(), req)
	if err != nil {
		slog.Error("Server.draftHandler: workflow run failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate draft"))
		return
	}

	if result.ValidationReport.Status == models.ValidationBlocked && strings.TrimSpace(result.ValidationReport.UserMessage) == "" {
		result.ValidationReport.UserMessage = "Generation was blocked by content review. Please rephrase your request."
	}

	slog.Info("Server.draftHandler: draft generated",
		"run_id", result.RunID,
		"intent", result.Intent,
		"validation_status", result.ValidationReport.Status,
		"requires_clarification", result.RequiresClarification)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.templatesHandler: processing template request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.templatesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var tmpl models.Template
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		slog.Warn("Server.templatesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(tmpl.TemplateID) == "" || strings.TrimSpace(tmpl.Intent) == "" {
		slog.Warn("Server.templatesHandler: missing required fields", "template_id", tmpl.TemplateID, "intent", tmpl.Intent)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("template_id and intent are required"))
		return
	}

	if err := s.st.UpsertTemplate(tmpl); err != nil {
		slog.Error("Server.templatesHandler: failed to upsert template", "error", err, "template_id", tmpl.TemplateID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store template"))
		return
	}

	slog.Info("Server.templatesHandler: template stored", "template_id", tmpl.TemplateID, "intent", tmpl.Intent, "tone_label", tmpl.ToneLabel)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"template_id": tmpl.TemplateID}))
}

type profileUpsertRequest struct {
	UserID  string         `json:"user_id"`
	Profile map[string]any `json:"profile"`
}

func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.profilesHandler: processing profile request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.profilesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req profileUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.profilesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		slog.Warn("Server.profilesHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}

	if err := s.st.UpsertProfile(req.UserID, req.Profile); err != nil {
		slog.Error("Server.profilesHandler: failed to upsert profile", "error", err, "user_id", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store profile"))
		return
	}

	slog.Info("Server.profilesHandler: profile stored", "user_id", req.UserID)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"user_id": req.UserID}))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "ok"}))
}
