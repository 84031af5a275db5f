// Package handlers exposes the context API over HTTP. Handlers decode and
// validate the wire shapes, delegate to the application service, and map
// service errors onto status codes; no assembly logic lives here.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"context-engine/internal/application/services"
	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/interfaces/http/dto"
	"context-engine/pkg/api"
	apperrors "context-engine/pkg/errors"
)

// ContextHandler serves context retrieval, refresh, and batch assembly.
type ContextHandler struct {
	service       *services.ContextService
	enforceClient bool
	logger        *zap.Logger
}

// NewContextHandler creates the handler. Tenant enforcement follows the auth
// configuration and only applies when an authenticated principal is present.
func NewContextHandler(service *services.ContextService, authCfg config.Auth, logger *zap.Logger) *ContextHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextHandler{
		service:       service,
		enforceClient: authCfg.EnforceClient,
		logger:        logger.Named("ContextHandler"),
	}
}

// RetrieveContext handles POST /api/v1/context/retrieve.
func (h *ContextHandler) RetrieveContext(w http.ResponseWriter, r *http.Request) {
	var req dto.RetrieveContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorWithCode(w, http.StatusUnprocessableEntity, "Invalid request body", apperrors.CodeValidationFailed)
		return
	}
	h.retrieve(w, r, req)
}

// RetrieveContextQuery handles GET /api/v1/context/retrieve.
func (h *ContextHandler) RetrieveContextQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dto.RetrieveContextRequest{
		ClientID: q.Get("client_id"),
		CaseID:   q.Get("case_id"),
		Scope:    q.Get("scope"),
	}
	if raw := q.Get("use_cache"); raw != "" {
		useCache, err := strconv.ParseBool(raw)
		if err != nil {
			api.ErrorWithCode(w, http.StatusBadRequest, "use_cache must be a boolean", apperrors.CodeValidationFailed)
			return
		}
		req.UseCache = &useCache
	}
	h.retrieve(w, r, req)
}

func (h *ContextHandler) retrieve(w http.ResponseWriter, r *http.Request, req dto.RetrieveContextRequest) {
	if err := dto.Validate(&req); err != nil {
		api.ErrorWithCode(w, http.StatusBadRequest, err.Error(), apperrors.CodeValidationFailed)
		return
	}
	if !allowClient(w, r, h.enforceClient, req.ClientID) {
		return
	}

	start := time.Now()
	record, err := h.service.Retrieve(r.Context(), services.RetrieveRequest{
		Key:        domain.CaseKey{ClientID: req.ClientID, CaseID: req.CaseID},
		Scope:      req.Scope,
		Dimensions: req.IncludeDimensions,
		UseCache:   req.CacheEnabled(),
	})
	if err != nil {
		writeError(w, r, h.logger, err, req.CaseID)
		return
	}

	api.Success(w, http.StatusOK, dto.NewContextEnvelope(record, time.Since(start)))
}

// RetrieveDimension handles POST /api/v1/context/dimension/retrieve.
func (h *ContextHandler) RetrieveDimension(w http.ResponseWriter, r *http.Request) {
	var req dto.RetrieveDimensionRequest
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

	key := domain.CaseKey{ClientID: req.ClientID, CaseID: req.CaseID}
	dim, result, err := h.service.RetrieveDimension(r.Context(), key, req.Dimension)
	if err != nil {
		writeError(w, r, h.logger, err, req.CaseID)
		return
	}

	api.Success(w, http.StatusOK, dto.DimensionEnvelope{
		CaseID:    req.CaseID,
		Dimension: string(dim),
		Data:      result,
	})
}

// RefreshContext handles POST /api/v1/context/refresh.
func (h *ContextHandler) RefreshContext(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshContextRequest
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

	start := time.Now()
	key := domain.CaseKey{ClientID: req.ClientID, CaseID: req.CaseID}
	record, err := h.service.Refresh(r.Context(), key, req.Scope, nil)
	if err != nil {
		writeError(w, r, h.logger, err, req.CaseID)
		return
	}

	api.Success(w, http.StatusOK, dto.NewContextEnvelope(record, time.Since(start)))
}

// BatchRetrieve handles POST /api/v1/context/batch/retrieve.
func (h *ContextHandler) BatchRetrieve(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRetrieveRequest
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

	start := time.Now()
	results, err := h.service.BatchRetrieve(r.Context(), req.ClientID, req.CaseIDs, req.Scope)
	if err != nil {
		writeError(w, r, h.logger, err, "")
		return
	}
	elapsed := time.Since(start)

	resp := dto.BatchEnvelope{
		Total:    len(results),
		Contexts: make([]*dto.ContextEnvelope, 0, len(results)),
	}
	for _, result := range results {
		if result.Err != nil {
			resp.Failed++
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[result.CaseID] = errorDetail(result.Err)
			continue
		}
		resp.Successful++
		resp.Contexts = append(resp.Contexts, dto.NewContextEnvelope(result.Record, elapsed))
	}

	api.Success(w, http.StatusOK, resp)
}
