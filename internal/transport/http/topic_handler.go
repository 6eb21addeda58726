package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/LLIu33/swot/internal/app"
	"github.com/LLIu33/swot/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// TopicHandler serves the topic resource.
type TopicHandler struct {
	service  *app.TopicService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewTopicHandler(service *app.TopicService, logger *slog.Logger) *TopicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers the topic endpoints on r.
func (h *TopicHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/feed", h.ServeFeed)
	r.Patch("/{id}", h.Rename)
	r.Delete("/{id}", h.Delete)
}

type topicRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

type errorResponse struct {
	Error string `json:"error,omitempty"`
}

type deleteResponse struct {
	Deleted []string `json:"deleted"`
}

// List returns the topic forest.
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	forest, err := h.service.Forest(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// Create adds a topic.
func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body."})
		return
	}
	topic, err := h.service.Create(r.Context(), req.Name, req.Parent)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

// Rename changes a topic's name.
func (h *TopicHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body."})
		return
	}
	topic, err := h.service.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// Delete removes a topic with its subtopics and quizzes.
func (h *TopicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: removed})
}

func (h *TopicHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTopicNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Topic not found."})
	case errors.Is(err, domain.ErrParentNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Parent topic not found."})
	case errors.Is(err, domain.ErrBlankName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please enter a name."})
	default:
		h.logger.Error("topic request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
