// Package api provides HTTP handlers for CallBook endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"callbook/internal/booking"
	"callbook/internal/models"
)

// createSessionRequest is the body of POST /sessions.
type createSessionRequest struct {
	SubjectID       string `json:"subject_id"`
	RelatedPartyID  string `json:"related_party_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// selectionRequest carries the single field of the date/time/phone endpoints.
type selectionRequest struct {
	Date  string `json:"date,omitempty"`
	Time  string `json:"time,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing create request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createSessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	view, err := s.manager.CreateSession(r.Context(), req.SubjectID, req.RelatedPartyID, req.DurationMinutes)
	if err != nil {
		slog.Warn("Server.createSessionHandler: session creation failed", "error", err)
		writeManagerError(w, err)
		return
	}
	slog.Info("Server.createSessionHandler: session created", "sessionID", view.ID, "flow", view.Flow)
	writeJSONResponse(w, http.StatusCreated, models.Success(view))
}

// sessionHandler routes everything under /sessions/{id}.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sessionHandler: invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		return
	}
	sessionID := segments[0]

	if len(segments) == 1 {
		// /sessions/{id}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		view, err := s.manager.Get(sessionID)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(view))
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	if len(segments) == 3 && segments[1] == "cancel" {
		// /sessions/{id}/cancel/{confirm|abort}
		switch segments[2] {
		case "confirm":
			view, err := s.manager.ConfirmCancel(r.Context(), sessionID)
			s.respond(w, view, err)
		case "abort":
			{
				view, err := s.manager.AbortCancel(sessionID)
				s.respond(w, view, err)
			}
		default:
			writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		}
		return
	}

	if len(segments) != 2 {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		return
	}

	switch segments[1] {
	case "date":
		req, ok := decodeSelection(w, r)
		if !ok {
			return
		}
		{
			view, err := s.manager.SelectDate(sessionID, req.Date)
			s.respond(w, view, err)
		}
	case "time":
		req, ok := decodeSelection(w, r)
		if !ok {
			return
		}
		{
			view, err := s.manager.SelectTime(sessionID, req.Time)
			s.respond(w, view, err)
		}
	case "phone":
		req, ok := decodeSelection(w, r)
		if !ok {
			return
		}
		{
			view, err := s.manager.SetPhone(sessionID, req.Phone)
			s.respond(w, view, err)
		}
	case "confirm":
		{
			view, err := s.manager.OpenConfirmation(sessionID)
			s.respond(w, view, err)
		}
	case "submit":
		req, ok := decodeSelection(w, r)
		if !ok {
			return
		}
		view, err := s.manager.Submit(r.Context(), sessionID, req.Phone)
		s.respond(w, view, err)
	case "call-now":
		req, ok := decodeSelection(w, r)
		if !ok {
			return
		}
		view, err := s.manager.CallNow(r.Context(), sessionID, req.Phone)
		s.respond(w, view, err)
	case "cancel":
		{
			view, err := s.manager.RequestCancel(sessionID)
			s.respond(w, view, err)
		}
	case "unsubscribe":
		view, err := s.manager.Unsubscribe(r.Context(), sessionID)
		s.respond(w, view, err)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
	}
}

// respond writes the manager result: the refreshed view on success, the error
// envelope otherwise.
func (s *Server) respond(w http.ResponseWriter, view *booking.View, err error) {
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

// decodeSelection parses the single-field request bodies. An empty body is
// allowed; field validation is the manager's job.
func decodeSelection(w http.ResponseWriter, r *http.Request) (selectionRequest, bool) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Server.decodeSelection: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return req, false
	}
	return req, true
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if exp, ok := s.backend.StoredTokenExpiry(); ok {
		healthData["token_expires_at"] = exp.UTC().Format(time.RFC3339)
	}

	writeJSONResponse(w, http.StatusOK, healthData)
}
