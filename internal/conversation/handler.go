package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes mounts the chat endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.Start)
	r.Post("/sessions/{sessionID}/input", h.Input)
	r.Get("/sessions/{sessionID}", h.Get)
	return r
}

// Start handles POST /chat/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	_, turn, err := h.service.Start(r.Context())
	if err != nil {
		h.logger.Error("failed to start conversation", "error", err)
		http.Error(w, "Failed to start conversation", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, turn)
}

// Input handles POST /chat/sessions/{sessionID}/input.
func (h *Handler) Input(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("failed to decode input", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	turn, err := h.service.Handle(r.Context(), sessionID, in)
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, turn)
}

// Get handles GET /chat/sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	view, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, ErrUnknownAction):
		http.Error(w, "Unknown action", http.StatusBadRequest)
	case errors.Is(err, ErrSessionBusy):
		http.Error(w, "Still working on your previous message", http.StatusConflict)
	default:
		h.logger.Error("failed to process input", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
