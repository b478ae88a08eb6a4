package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// Handler serves the widget's public business config and the admin profile endpoints.
type Handler struct {
	resolver Resolver
	logger   *logging.Logger
}

func NewHandler(resolver Resolver, logger *logging.Logger) *Handler {
	if resolver == nil {
		panic("profile: resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// PublicRoutes is mounted at /api/business.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{business}", h.GetPublic)
	return r
}

// AdminRoutes is mounted at /admin/profiles.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{business}", h.GetFull)
	r.Put("/{business}", h.Put)
	return r
}

// GetPublic returns branding and demo settings for the widget.
// GET /api/business/{business}
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

// GetFull returns the stored profile.
// GET /admin/profiles/{business}
func (h *Handler) GetFull(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Put replaces a profile when the backing store accepts writes.
// PUT /admin/profiles/{business}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	business := chi.URLParam(r, "business")
	writer, ok := h.resolver.(Writer)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "profile store is read-only"})
		return
	}
	if !ValidName(business) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business name"})
		return
	}
	var p BusinessProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if p.Name == "" {
		p.Name = business
	}
	if err := writer.Put(r.Context(), business, &p); err != nil {
		h.logger.Error("failed to save business profile", "business", business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save profile"})
		return
	}
	h.logger.Info("business profile updated", "business", business)
	writeJSON(w, http.StatusOK, &p)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*BusinessProfile, bool) {
	business := chi.URLParam(r, "business")
	p, err := Load(r.Context(), h.resolver, business)
	switch {
	case err == nil:
		return p, true
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Business profile not found"})
	default:
		h.logger.Error("failed to load business profile", "business", business, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
