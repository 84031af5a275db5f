package handlers

// This file contains OpenAPI/Swagger documentation for CacheHandler endpoints

// Stats reports cache tier counters
// @Summary Cache statistics
// @Description Returns per-tier hit/miss/eviction counters, the aggregate hit rate, and in-flight build count
// @Tags cache
// @Produce json
// @Success 200 {object} cache.ManagerStats "Tier-keyed counters"
// @Security BearerAuth
// @Router /cache/stats [get]

// Invalidate removes cached entries for a case
// @Summary Invalidate cached context
// @Description Removes one cached dimension set when a scope is given, or every entry for the case otherwise
// @Tags cache
// @Produce json
// @Param client_id query string true "Client ID"
// @Param case_id query string true "Case ID"
// @Param scope query string false "Scope whose dimension set to remove"
// @Success 200 {object} dto.InvalidateResponse "Number of entries removed"
// @Failure 400 {object} api.ErrorBody "Missing identifiers or unknown scope"
// @Security BearerAuth
// @Router /cache/invalidate [delete]

// InvalidateCase removes every cached entry for a case
// @Summary Invalidate a whole case
// @Description Removes all cached dimension sets for the case and forgets its in-flight builds
// @Tags cache
// @Produce json
// @Param client_id query string true "Client ID"
// @Param case_id query string true "Case ID"
// @Success 200 {object} dto.InvalidateResponse "Number of entries removed"
// @Failure 400 {object} api.ErrorBody "Missing identifiers"
// @Security BearerAuth
// @Router /cache/invalidate/case [post]

// Warmup pre-builds contexts into the cache
// @Summary Warm the cache
// @Description Builds and stores contexts for up to 50 cases so later retrievals hit the cache
// @Tags cache
// @Accept json
// @Produce json
// @Param request body dto.WarmupRequest true "Warmup parameters"
// @Success 200 {object} dto.WarmupResponse "Counts of successful and failed builds"
// @Failure 400 {object} api.ErrorBody "Invalid parameters or batch too large"
// @Failure 422 {object} api.ErrorBody "Malformed request body"
// @Security BearerAuth
// @Router /cache/warmup [post]
