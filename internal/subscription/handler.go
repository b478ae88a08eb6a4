package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// Handler exposes the public subscription check and the admin lifecycle endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("subscription: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PublicRoutes is mounted at /api/subscriptions.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{business}", h.Check)
	return r
}

// AdminRoutes is mounted at /admin/subscriptions.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/activate", h.Activate)
	r.Post("/deactivate", h.Deactivate)
	return r
}

type checkResponse struct {
	Business     string        `json:"businessName"`
	Active       bool          `json:"active"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Check reports whether a business is subscribed.
// GET /api/subscriptions/{business}
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	business := chi.URLParam(r, "business")
	sub, err := h.service.Get(r.Context(), business)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusOK, checkResponse{Business: business})
	case err != nil:
		h.logger.Error("subscription check failed", "business", business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	default:
		writeJSON(w, http.StatusOK, checkResponse{Business: business, Active: sub.Active(), Subscription: sub})
	}
}

// Activate creates or replaces the business's subscription.
// POST /admin/subscriptions/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.Plan = Plan(strings.ToLower(string(req.Plan)))
	sub, err := h.service.Activate(r.Context(), req)
	switch {
	case errors.Is(err, ErrBusinessRequired), errors.Is(err, ErrInvalidPlan):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil && sub == nil:
		h.logger.Error("subscription activation failed", "business", req.Business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to activate subscription"})
		return
	case err != nil:
		// Record is saved; only the follow-up hook failed.
		h.logger.Warn("subscription activated with hook failure", "business", req.Business, "error", err)
	}
	h.logger.Info("subscription activated", "business", sub.Business, "plan", sub.Plan)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

type deactivateRequest struct {
	Business string `json:"businessName"`
}

// Deactivate cancels a business's subscription.
// POST /admin/subscriptions/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Business) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "businessName required"})
		return
	}
	sub, err := h.service.Deactivate(r.Context(), req.Business)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Subscription not found"})
		return
	case err != nil:
		h.logger.Error("subscription deactivation failed", "business", req.Business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate subscription"})
		return
	}
	h.logger.Info("subscription deactivated", "business", sub.Business)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

// List returns all subscription records.
// GET /admin/subscriptions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("subscription list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if subs == nil {
		subs = []Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
