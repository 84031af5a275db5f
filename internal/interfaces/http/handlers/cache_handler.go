package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"context-engine/internal/application/services"
	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/interfaces/http/dto"
	"context-engine/pkg/api"
	apperrors "context-engine/pkg/errors"
)

// CacheHandler serves cache introspection, invalidation, and warmup.
type CacheHandler struct {
	service       *services.ContextService
	enforceClient bool
	logger        *zap.Logger
}

// NewCacheHandler creates the handler.
func NewCacheHandler(service *services.ContextService, authCfg config.Auth, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{
		service:       service,
		enforceClient: authCfg.EnforceClient,
		logger:        logger.Named("CacheHandler"),
	}
}

// Stats handles GET /api/v1/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.service.CacheStats())
}

// Invalidate handles DELETE /api/v1/cache/invalidate. With a scope it removes
// that dimension set; without one it removes every entry for the case.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, caseID := q.Get("client_id"), q.Get("case_id")
	if clientID == "" || caseID == "" {
		api.ErrorWithCode(w, http.StatusBadRequest, "client_id and case_id are required", apperrors.CodeValidationFailed)
		return
	}
	if !allowClient(w, r, h.enforceClient, clientID) {
		return
	}

	key := domain.CaseKey{ClientID: clientID, CaseID: caseID}
	removed, err := h.service.Invalidate(r.Context(), key, q.Get("scope"))
	if err != nil {
		writeError(w, r, h.logger, err, caseID)
		return
	}

	api.Success(w, http.StatusOK, dto.InvalidateResponse{Removed: removed})
}

// InvalidateCase handles POST /api/v1/cache/invalidate/case.
func (h *CacheHandler) InvalidateCase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, caseID := q.Get("client_id"), q.Get("case_id")
	if clientID == "" || caseID == "" {
		api.ErrorWithCode(w, http.StatusBadRequest, "client_id and case_id are required", apperrors.CodeValidationFailed)
		return
	}
	if !allowClient(w, r, h.enforceClient, clientID) {
		return
	}

	key := domain.CaseKey{ClientID: clientID, CaseID: caseID}
	removed, err := h.service.InvalidateCase(r.Context(), key)
	if err != nil {
		writeError(w, r, h.logger, err, caseID)
		return
	}

	api.Success(w, http.StatusOK, dto.InvalidateResponse{Removed: removed})
}

// Warmup handles POST /api/v1/cache/warmup.
func (h *CacheHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	var req dto.WarmupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorWithCode(w, http.StatusUnprocessableEntity, "Invalid request body", apperrors.CodeValidationFailed)
		return
	}
	if err := dto.Validate(&req); err != nil {
		api.ErrorWithCode(w, http.StatusBadRequest, err.Error(), apperrors.CodeValidationFailed)
		return
	}
	if !allowClient(w, r, h.enforceClient, req.ClientID) {
		return
	}

	successful, failed, err := h.service.Warmup(r.Context(), req.ClientID, req.CaseIDs, req.Scope)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}

	api.Success(w, http.StatusOK, dto.WarmupResponse{Successful: successful, Failed: failed})
}
