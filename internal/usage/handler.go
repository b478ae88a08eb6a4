package usage

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/chappy-widget-api/internal/observability/metrics"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// Handler serves widget usage logging, admin reports and demo counter resets.
type Handler struct {
	tracker *Tracker
	counter DemoCounter
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
}

func NewHandler(tracker *Tracker, counter DemoCounter, m *metrics.ChatMetrics, logger *logging.Logger) *Handler {
	if tracker == nil {
		panic("usage: tracker cannot be nil")
	}
	if counter == nil {
		panic("usage: demo counter cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tracker: tracker, counter: counter, metrics: m, logger: logger}
}

// PublicRoutes is mounted at /api/metrics.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/log", h.LogEvent)
	return r
}

// AdminRoutes is mounted at /admin/metrics.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{business}", h.Report)
	r.Get("/{business}/summary", h.Summary)
	return r
}

// DemoRoutes is mounted at /admin/demo.
func (h *Handler) DemoRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/reset", h.ResetDemo)
	return r
}

type logEventRequest struct {
	Business  string    `json:"business"`
	EventType EventType `json:"eventType"`
}

// LogEvent records a widget click or message.
// POST /api/metrics/log
func (h *Handler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if !profile.ValidName(strings.TrimSpace(req.Business)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing business or eventType"})
		return
	}
	err := h.tracker.Log(r.Context(), req.Business, req.EventType)
	switch {
	case errors.Is(err, ErrInvalidEvent):
		h.metrics.ObserveUsageEvent(string(req.EventType), "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing business or eventType"})
		return
	case err != nil:
		h.metrics.ObserveUsageEvent(string(req.EventType), "error")
		h.logger.Error("usage event failed", "business", req.Business, "event_type", req.EventType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to log metrics"})
		return
	}
	h.metrics.ObserveUsageEvent(string(req.EventType), "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Report returns totals and daily stats for a business.
// GET /admin/metrics/{business}
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	business := chi.URLParam(r, "business")
	report, err := h.tracker.Report(r.Context(), business)
	if err != nil {
		h.logger.Error("usage report failed", "business", business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read metrics"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Summary returns totals and the last 7 and 30 days for a business.
// GET /admin/metrics/{business}/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	business := chi.URLParam(r, "business")
	summary, err := h.tracker.Summarize(r.Context(), business)
	if err != nil {
		h.logger.Error("usage summary failed", "business", business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate summary"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type resetRequest struct {
	Business  string `json:"business"`
	SessionID string `json:"sessionId,omitempty"`
}

// ResetDemo clears demo counters for one session or a whole business.
// POST /admin/demo/reset
func (h *Handler) ResetDemo(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !profile.ValidName(strings.TrimSpace(req.Business)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "business required"})
		return
	}
	business := strings.TrimSpace(req.Business)
	sessionID := strings.TrimSpace(req.SessionID)
	if err := h.counter.Reset(r.Context(), business, sessionID); err != nil {
		h.logger.Error("demo reset failed", "business", business, "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to reset demo"})
		return
	}
	h.logger.Info("demo counters reset", "business", business, "session_id", sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "business": business, "sessionId": sessionID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
