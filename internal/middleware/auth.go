package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"context-engine/pkg/api"
	"context-engine/pkg/auth"
)

// Auth authenticates requests with the configured authenticator and attaches
// the resolved principal to the request context. Requests without valid
// credentials end with 401. Tenant checks against the principal's client ID
// happen in the handlers, where the requested client is known.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				api.Error(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				api.Error(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			principal, err := authenticator.Authenticate(token)
			if err != nil {
				logger.Warn("authentication failed",
					zap.Error(err),
					zap.String("request_id", GetRequestIDFromRequest(r)),
				)
				api.Error(w, http.StatusUnauthorized, "Invalid or expired credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
