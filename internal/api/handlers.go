// Package api provides HTTP handlers for FocusGuard endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/FocusGuard/internal/blocking"
	"github.com/BTreeMap/FocusGuard/internal/models"
	"github.com/BTreeMap/FocusGuard/internal/util"
)

// notificationsHandler accepts scheduling requests.
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.notificationsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var n models.ScheduledNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		slog.Warn("Server.notificationsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if n.ID == "" {
		n.ID = util.GenerateNotificationID()
	}

	if !s.scheduler.ScheduleNotification(n) {
		writeJSONResponse(w, http.StatusUnprocessableEntity,
			models.Rejected("Notification was rejected: past-dated, invalid, or context requirement unmet"))
		return
	}

	slog.Info("Server.notificationsHandler: notification scheduled", "id", n.ID, "type", n.Type)
	writeJSONResponse(w, http.StatusOK, models.Scheduled(map[string]string{"id": n.ID}))
}

// notificationPreviewHandler reports where the timing algorithms would place
// a candidate notification and how effective the delivery would be, without
// queuing anything.
func (s *Server) notificationPreviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var n models.ScheduledNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		slog.Warn("Server.notificationPreviewHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if n.Type == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("type is required"))
		return
	}
	if n.ScheduledTime.IsZero() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("scheduled_time is required"))
		return
	}

	optimal, effectiveness := s.scheduler.PreviewTiming(n)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"optimal_time":  optimal,
		"effectiveness": effectiveness,
	}))
}

// notificationHandler cancels a pending or recurring notification by ID.
func (s *Server) notificationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		slog.Warn("Server.notificationHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/notifications/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing or invalid notification id"))
		return
	}

	if !s.scheduler.CancelNotification(id) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No pending or recurring notification with that id"))
		return
	}

	slog.Info("Server.notificationHandler: notification cancelled", "id", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Notification cancelled", nil))
}

// statusHandler reports the scheduler's counters.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.scheduler.GetStatus()))
}

// blockCheckHandler evaluates one usage observation into a blocking decision.
func (s *Server) blockCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req blocking.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.blockCheckHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Package == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("package is required"))
		return
	}
	if req.LimitMinutes <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("limit_minutes must be positive"))
		return
	}
	if req.UsageMinutes < 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("usage_minutes must not be negative"))
		return
	}

	decision := s.engine.ShouldBlockApp(req.Package, req.UsageMinutes, req.LimitMinutes)
	writeJSONResponse(w, http.StatusOK, models.Success(decision))
}

// strategyRequest is the PUT payload for per-app strategy updates.
type strategyRequest struct {
	Strategy models.StrategyType `json:"strategy"`
}

// strategyHandler reads or updates the blocking strategy for one app.
func (s *Server) strategyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("package query parameter is required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		strategy := s.engine.GetBlockingStrategy(pkg)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{
			"package":  pkg,
			"strategy": string(strategy),
		}))
	case http.MethodPut:
		var req strategyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if err := s.engine.SetBlockingStrategy(pkg, req.Strategy); err != nil {
			if err == models.ErrInvalidStrategyType {
				writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
				return
			}
			slog.Error("Server.strategyHandler: failed to store strategy", "package", pkg, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store strategy"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Strategy updated", nil))
	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// rulesHandler reads or updates the context rules.
func (s *Server) rulesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(s.engine.GetContextRules()))
	case http.MethodPut:
		var rules models.ContextRules
		if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if err := s.engine.UpdateContextRules(rules); err != nil {
			slog.Error("Server.rulesHandler: failed to store context rules", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store context rules"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Context rules updated", nil))
	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// usageSessionsHandler ingests usage sessions from the external poller.
func (s *Server) usageSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var session models.UsageSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := session.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.AddUsageSession(session); err != nil {
		slog.Error("Server.usageSessionsHandler: failed to record session",
			"package", session.Package, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record usage session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Usage session recorded", nil))
}
