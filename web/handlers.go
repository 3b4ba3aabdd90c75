package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"markestedt/layoutfix/storage"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ctrl.Status())
}

// handleEnabled reads or flips the process-wide enabled flag
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]bool{"enabled": s.ctrl.Status().Enabled})

	case http.MethodPost:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		// The controller publishes the change to websocket clients.
		s.ctrl.SetEnabled(*req.Enabled)
		writeJSON(w, map[string]bool{"enabled": *req.Enabled})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleConfig returns the active settings. Editing happens in the
// config file; the watcher picks changes up.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.ctrl.Config()
	view := struct {
		Hotkey            string `json:"hotkey"`
		Mode              string `json:"mode"`
		ReplaceCaps       bool   `json:"replaceCaps"`
		MaxCharacterLimit int    `json:"maxCharacterLimit"`
		SwitchLanguage    bool   `json:"switchLanguageAfterConvert"`
		OverlapPolicy     string `json:"overlapPolicy"`
		HistoryEnabled    bool   `json:"historyEnabled"`
		StoreText         bool   `json:"storeText"`
		WebPort           int    `json:"webPort"`
		LogLevel          string `json:"logLevel"`
	}{
		Hotkey:            cfg.Binding().String(),
		Mode:              cfg.Mode().String(),
		ReplaceCaps:       cfg.Conversion.ReplaceCaps,
		MaxCharacterLimit: cfg.Conversion.MaxCharacterLimit,
		SwitchLanguage:    cfg.Conversion.SwitchLanguageAfterConvert,
		OverlapPolicy:     cfg.Conversion.OverlapPolicy,
		HistoryEnabled:    cfg.History.Enabled,
		StoreText:         cfg.History.StoreText,
		WebPort:           cfg.Web.Port,
		LogLevel:          cfg.Log.Level,
	}

	writeJSON(w, view)
}

// handleStats returns statistics for the last ?days=N days, or for the
// ?from=&to= date range (YYYY-MM-DD, inclusive).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		start, err1 := time.Parse(time.DateOnly, from)
		end, err2 := time.Parse(time.DateOnly, to)
		if err1 != nil || err2 != nil || end.Before(start) {
			http.Error(w, "Invalid date range", http.StatusBadRequest)
			return
		}
		overall, err := s.db.GetStatsForDateRange(start, end.Add(24*time.Hour-time.Second))
		if err != nil {
			slog.Error("Failed to get range stats", "error", err)
			http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"overall": overall, "from": from, "to": to})
		return
	}

	days := 7 // default to 7 days
	if d, err := strconv.Atoi(q.Get("days")); err == nil && d > 0 {
		days = d
	}

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	outcomes, err := s.db.GetOutcomeStats(days)
	if err != nil {
		slog.Error("Failed to get outcome stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"days":     days,
		"overall":  overall,
		"daily":    daily,
		"outcomes": outcomes,
	})
}

// handleHistory handles GET and DELETE requests for conversion history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated conversion history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, 500)
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	conversions, err := s.db.GetConversions(limit, offset)
	if err != nil {
		slog.Error("Failed to get conversions", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetConversionCount()
	if err != nil {
		slog.Error("Failed to get conversion count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"conversions": conversions,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// handleDeleteHistory deletes one conversion (/api/history/123) or the
// whole history (/api/history).
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history"), "/")
	if idStr == "" {
		n, err := s.db.ClearConversions()
		if err != nil {
			slog.Error("Failed to clear history", "error", err)
			http.Error(w, "Failed to clear history", http.StatusInternalServerError)
			return
		}
		slog.Info("History cleared", "deleted", n)
		writeJSON(w, map[string]any{"status": "success", "deleted": n})
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteConversion(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Conversion not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete conversion", "error", err, "id", id)
		http.Error(w, "Failed to delete conversion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"status": "success"})
}
