package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tenantworks/platform/internal/middleware"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/service"
	"github.com/tenantworks/platform/pkg/logger"
)

// MessageHandler handles message and typing endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/{id}/messages
// Supports ?after=<message_id>&limit=N for cursor pagination.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	afterID := r.URL.Query().Get("after")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	resp, err := h.service.List(ctx, ident, conversationID, afterID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.SendMessageRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	msg, err := h.service.Send(ctx, ident, conversationID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Edit handles PUT /api/v1/conversations/{id}/messages/{messageID}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "messageID")

	var req model.EditMessageRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	msg, err := h.service.Edit(ctx, ident, conversationID, messageID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Typing handles POST /api/v1/conversations/{id}/typing
func (h *MessageHandler) Typing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.TypingRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.service.MarkTyping(ctx, ident, conversationID, req.IsTyping); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// TypingUsers handles GET /api/v1/conversations/{id}/typing
func (h *MessageHandler) TypingUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	conversationID := chi.URLParam(r, "id")

	users, err := h.service.TypingUsers(ctx, ident, conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"typing": users})
}
