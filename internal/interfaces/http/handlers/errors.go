package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"context-engine/internal/middleware"
	"context-engine/pkg/api"
	"context-engine/pkg/auth"
	apperrors "context-engine/pkg/errors"
)

// statusClientClosedRequest is nginx's non-standard code for a client that
// disconnected before the response was ready.
const statusClientClosedRequest = 499

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case apperrors.IsCancelled(err) || errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case apperrors.IsDeadline(err) || errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorDetail extracts the client-facing message, hiding wrapped causes.
func errorDetail(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// writeError sends the mapped error response and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, caseID string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.Int("status", status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestIDFromRequest(r)),
			zap.Error(err),
		)
	}
	api.ErrorForCase(w, status, errorDetail(err), apperrors.CodeOf(err), caseID)
}

// allowClient enforces the tenant door: with enforcement on and an
// authenticated principal present, the principal's client must match the
// requested one. Without a principal (auth disabled) the request passes.
func allowClient(w http.ResponseWriter, r *http.Request, enforce bool, clientID string) bool {
	if !enforce {
		return true
	}
	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		return true
	}
	if principal.ClientID != "" && principal.ClientID != clientID {
		api.Error(w, http.StatusForbidden, "Token is not authorized for this client")
		return false
	}
	return true
}
