package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenantworks/platform/internal/middleware"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/service"
	"github.com/tenantworks/platform/pkg/logger"
)

// NavigationHandler handles navigation configuration endpoints.
type NavigationHandler struct {
	service *service.NavigationService
	logger  *logger.Logger
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(svc *service.NavigationService, log *logger.Logger) *NavigationHandler {
	return &NavigationHandler{
		service: svc,
		logger:  log,
	}
}

// Save handles POST /api/v1/navigation/configurations
func (h *NavigationHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	var req model.SaveNavigationRequest
	if err := decodeValid(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	cfg, err := h.service.Save(ctx, ident, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, cfg)
}

// List handles GET /api/v1/navigation/configurations
func (h *NavigationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	configs, err := h.service.List(ctx, ident)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"configurations": configs})
}

// Get handles GET /api/v1/navigation/configurations/{id}
func (h *NavigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	configID := chi.URLParam(r, "id")

	cfg, err := h.service.Get(ctx, ident, configID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// Delete handles DELETE /api/v1/navigation/configurations/{id}
func (h *NavigationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	configID := chi.URLParam(r, "id")

	if err := h.service.Delete(ctx, ident, configID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/navigation/configurations/{id}/activate
func (h *NavigationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)
	configID := chi.URLParam(r, "id")

	if err := h.service.Activate(ctx, ident, configID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Current handles GET /api/v1/navigation/current
// Without parameters it resolves the caller's navigation. With
// ?type=user|role&target_id= it previews what a target would see.
func (h *NavigationHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	targetType := r.URL.Query().Get("type")
	targetID := r.URL.Query().Get("target_id")

	var resolved *model.ResolvedNavigation
	var err error
	if targetType != "" || targetID != "" {
		resolved, err = h.service.Preview(ctx, ident, targetType, targetID)
	} else {
		resolved, err = h.service.Current(ctx, ident)
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// Items handles GET /api/v1/navigation/items
func (h *NavigationHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
