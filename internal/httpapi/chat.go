package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/antoniostano/mira/internal/memory"
	"github.com/antoniostano/mira/internal/pipeline"
	"github.com/antoniostano/mira/internal/session"
)

type chatRequest struct {
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	Emotion    string  `json:"emotion,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type chatResponse struct {
	TurnID        string `json:"turn_id"`
	State         string `json:"state"`
	Response      string `json:"response"`
	Flagged       bool   `json:"flagged,omitempty"`
	InputSeverity string `json:"input_severity"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id and text are required")
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if sess.Status != session.StatusActive {
		respondError(w, http.StatusConflict, "session_ended", "session is no longer active")
		return
	}

	result := s.runner.RunTurn(r.Context(), pipeline.TurnRequest{
		SessionID:  req.SessionID,
		Question:   req.Text,
		Emotion:    req.Emotion,
		Confidence: req.Confidence,
		Age:        sess.Age,
	})
	_ = s.sessions.RecordTurn(req.SessionID, result.Flagged)

	respondJSON(w, http.StatusOK, chatResponse{
		TurnID:        result.TurnID,
		State:         string(result.State),
		Response:      result.Response,
		Flagged:       result.Flagged,
		InputSeverity: result.InputVerdict.Severity.String(),
	})
}

type consentRequest struct {
	SessionID string `json:"session_id"`
	Granted   bool   `json:"granted"`
}

type consentResponse struct {
	SessionID    string `json:"session_id"`
	Granted      bool   `json:"granted"`
	ConsentToken string `json:"consent_token,omitempty"`
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	token, err := s.memory.GiveConsent(r.Context(), req.SessionID, req.Granted)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "consent_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, consentResponse{
		SessionID:    req.SessionID,
		Granted:      req.Granted,
		ConsentToken: token.Value(),
	})
}

type profileRequest struct {
	SessionID    string            `json:"session_id"`
	ConsentToken string            `json:"consent_token"`
	DisplayName  *string           `json:"display_name,omitempty"`
	Age          *int              `json:"age,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	token, err := s.memory.ResolveConsent(req.SessionID, req.ConsentToken)
	if err != nil {
		respondError(w, http.StatusForbidden, "consent_required", err.Error())
		return
	}

	err = s.memory.SetProfile(r.Context(), token, memory.ProfileUpdate{
		DisplayName: req.DisplayName,
		Age:         req.Age,
		Preferences: req.Preferences,
	})
	if err != nil {
		if errors.Is(err, memory.ErrConsentRequired) {
			respondError(w, http.StatusForbidden, "consent_required", err.Error())
			return
		}
		if errors.Is(err, memory.ErrAgeOutOfRange) {
			respondError(w, http.StatusBadRequest, "invalid_age", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "profile_update_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type memoryContextResponse struct {
	SessionID    string            `json:"session_id"`
	ConsentGiven bool              `json:"consent_given"`
	DisplayName  string            `json:"display_name,omitempty"`
	Age          int               `json:"age,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	RecentTopics []string          `json:"recent_topics"`
}

func (s *Server) handleMemoryContext(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	memCtx := s.memory.Snapshot(r.Context(), sessionID)
	respondJSON(w, http.StatusOK, memoryContextResponse{
		SessionID:    sessionID,
		ConsentGiven: memCtx.ConsentGiven,
		DisplayName:  memCtx.DisplayName,
		Age:          memCtx.Age,
		Preferences:  memCtx.Preferences,
		RecentTopics: memCtx.RecentTopics,
	})
}
