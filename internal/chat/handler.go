package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/financeguru/advisor/internal/api"
	"github.com/financeguru/advisor/internal/connectivity"
	"github.com/financeguru/advisor/internal/domain"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize caps message request bodies (64KB is generous for
// a chat message).
const maxRequestBodySize = 64 << 10

// Handler exposes the conversation core to the rendering layer.
type Handler struct {
	dispatcher *Dispatcher
	monitor    *connectivity.Monitor
	hub        *Hub
}

// NewHandler creates the chat HTTP handler.
func NewHandler(dispatcher *Dispatcher, monitor *connectivity.Monitor, hub *Hub) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		monitor:    monitor,
		hub:        hub,
	}
}

// RegisterRoutes registers the chat API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SendMessage)
		r.Get("/session", h.GetSession)
		r.Post("/session/clear", h.ClearHistory)
		r.Post("/session/sidebar", h.SetSidebar)
		r.Post("/session/welcome", h.DismissWelcome)
		r.Get("/status", h.GetStatus)
		r.Post("/status/recheck", h.RecheckStatus)
		r.Get("/faqs", h.GetFAQs)
	})
	r.Get("/ws/events", h.hub.ServeWS)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Message *domain.Message `json:"message"`
	Status  string          `json:"status"`
}

// SendMessage runs the dispatch pipeline for one user message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	botMsg, err := h.dispatcher.Send(r.Context(), req.Text)
	if errors.Is(err, ErrEmptyMessage) {
		api.Error(w, http.StatusBadRequest, "message is empty")
		return
	}
	if err != nil {
		slog.Error("Send failed", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	api.JSON(w, http.StatusOK, sendMessageResponse{
		Message: botMsg,
		Status:  h.monitor.State().String(),
	})
}

type sessionResponse struct {
	Session domain.Session `json:"session"`
	Status  string         `json:"status"`
	Loading bool           `json:"loading"`
}

// GetSession returns the live session plus connectivity and loading
// signals.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, sessionResponse{
		Session: h.dispatcher.Snapshot(),
		Status:  h.monitor.State().String(),
		Loading: h.dispatcher.Loading(),
	})
}

// ClearHistory resets the transcript.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.ClearHistory(r.Context()); err != nil {
		slog.Error("Failed to clear history", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	api.JSON(w, http.StatusOK, sessionResponse{
		Session: h.dispatcher.Snapshot(),
		Status:  h.monitor.State().String(),
	})
}

type sidebarRequest struct {
	Open bool `json:"open"`
}

// SetSidebar persists the sidebar visibility flag.
func (h *Handler) SetSidebar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req sidebarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.dispatcher.SetSidebarOpen(r.Context(), req.Open); err != nil {
		slog.Error("Failed to persist sidebar flag", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to update sidebar")
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"open": req.Open})
}

// DismissWelcome marks the welcome flow as shown.
func (h *Handler) DismissWelcome(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.DismissWelcome(r.Context()); err != nil {
		slog.Error("Failed to persist welcome flag", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to dismiss welcome")
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"welcome_shown": true})
}

// GetStatus returns the current connectivity state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]string{"status": h.monitor.State().String()})
}

// RecheckStatus triggers a manual probe (the UI's retry button) and
// returns the settled state.
func (h *Handler) RecheckStatus(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.CheckNow(r.Context())
	api.JSON(w, http.StatusOK, map[string]string{"status": state.String()})
}

// GetFAQs returns the fixed FAQ catalog for the sidebar.
func (h *Handler) GetFAQs(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string][]domain.FAQEntry{"faqs": domain.FAQCatalog})
}
