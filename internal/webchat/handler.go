package webchat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

const maxBodyBytes = 64 << 10

// apologyReply is shown by the widget when a turn fails for reasons the visitor cannot fix.
const apologyReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."

// Handler serves POST /api/chat.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes is mounted at /api/chat.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Chat)
	return r
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
	Reply   string       `json:"reply,omitempty"`
}

// Chat handles one widget message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid input",
			Details: []FieldError{{Field: "body", Message: "must be a JSON object"}},
		})
		return
	}

	resp, err := h.service.Chat(r.Context(), req)
	var verr *ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid input", Details: verr.Details})
	case errors.Is(err, profile.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Business not found"})
	default:
		if r.Context().Err() != nil {
			h.logger.Debug("chat request canceled by client", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Reply: apologyReply})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
