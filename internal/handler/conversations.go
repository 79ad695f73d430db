package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenantworks/platform/internal/middleware"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/service"
	"github.com/tenantworks/platform/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	var req model.CreateConversationRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	conv, err := h.service.Create(ctx, ident, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	resp, err := h.service.List(ctx, ident)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	conv, err := h.service.Get(ctx, ident, conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := h.service.Delete(ctx, ident, conversationID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddParticipant handles POST /api/v1/conversations/{id}/participants
func (h *ConversationHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.AddParticipantRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.service.AddParticipant(ctx, ident, conversationID, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Leave handles DELETE /api/v1/conversations/{id}/participants/me
func (h *ConversationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := h.service.Leave(ctx, ident, conversationID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRead handles POST /api/v1/conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	count, err := h.service.MarkRead(ctx, ident, conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}
