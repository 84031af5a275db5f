package handlers

// This file contains OpenAPI/Swagger documentation for ContextHandler endpoints

// RetrieveContext assembles the five-dimensional context for a case
// @Summary Retrieve case context
// @Description Assembles WHO/WHAT/WHERE/WHEN/WHY context for a case, serving from cache when possible
// @Tags context
// @Accept json
// @Produce json
// @Param request body dto.RetrieveContextRequest true "Retrieval parameters"
// @Success 200 {object} dto.ContextEnvelope "Assembled context with quality score"
// @Failure 400 {object} api.ErrorBody "Invalid scope, dimension, or missing field"
// @Failure 404 {object} api.ErrorBody "Case not found"
// @Failure 422 {object} api.ErrorBody "Malformed request body"
// @Failure 503 {object} api.ErrorBody "Upstream unavailable"
// @Security BearerAuth
// @Router /context/retrieve [post]

// RetrieveContextQuery assembles context from query parameters
// @Summary Retrieve case context (GET)
// @Description Query-parameter variant of context retrieval for simple clients
// @Tags context
// @Produce json
// @Param client_id query string true "Client ID"
// @Param case_id query string true "Case ID"
// @Param scope query string false "Scope (minimal/standard/comprehensive)" default:"standard"
// @Param use_cache query bool false "Serve from cache when possible" default:"true"
// @Success 200 {object} dto.ContextEnvelope "Assembled context with quality score"
// @Failure 400 {object} api.ErrorBody "Invalid parameters"
// @Failure 404 {object} api.ErrorBody "Case not found"
// @Failure 503 {object} api.ErrorBody "Upstream unavailable"
// @Security BearerAuth
// @Router /context/retrieve [get]

// RetrieveDimension runs a single dimension analyzer
// @Summary Retrieve one dimension
// @Description Builds a single context dimension directly, bypassing the cache
// @Tags context
// @Accept json
// @Produce json
// @Param request body dto.RetrieveDimensionRequest true "Dimension parameters"
// @Success 200 {object} dto.DimensionEnvelope "Dimension data with quality fields"
// @Failure 400 {object} api.ErrorBody "Unknown dimension"
// @Failure 404 {object} api.ErrorBody "Case not found"
// @Failure 503 {object} api.ErrorBody "Upstream unavailable"
// @Security BearerAuth
// @Router /context/dimension/retrieve [post]

// RefreshContext rebuilds the cached context
// @Summary Refresh case context
// @Description Invalidates the cached context and rebuilds it from upstream sources
// @Tags context
// @Accept json
// @Produce json
// @Param request body dto.RefreshContextRequest true "Refresh parameters"
// @Success 200 {object} dto.ContextEnvelope "Freshly built context"
// @Failure 400 {object} api.ErrorBody "Invalid parameters"
// @Failure 404 {object} api.ErrorBody "Case not found"
// @Failure 503 {object} api.ErrorBody "Upstream unavailable"
// @Security BearerAuth
// @Router /context/refresh [post]

// BatchRetrieve assembles contexts for several cases
// @Summary Batch context retrieval
// @Description Assembles contexts for up to 50 cases of one client; per-case failures do not fail the batch
// @Tags context
// @Accept json
// @Produce json
// @Param request body dto.BatchRetrieveRequest true "Batch parameters"
// @Success 200 {object} dto.BatchEnvelope "Per-case results and failure reasons"
// @Failure 400 {object} api.ErrorBody "Invalid parameters or batch too large"
// @Failure 422 {object} api.ErrorBody "Malformed request body"
// @Security BearerAuth
// @Router /context/batch/retrieve [post]
