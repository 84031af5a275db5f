package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"context-engine/pkg/api"
)

// Timeout bounds every request with a deadline. Handlers observe the deadline
// through the request context; if one ignores it and the deadline passes, the
// middleware answers 504 on its behalf.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			done := make(chan struct{})

			go func() {
				defer func() {
					if err := recover(); err != nil {
						logger.Error("panic in request handler",
							zap.Any("panic", err),
							zap.String("request_id", GetRequestIDFromRequest(r)),
						)
					}
				}()

				next.ServeHTTP(w, r)
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("request deadline exceeded",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("timeout", timeout),
					zap.String("request_id", GetRequestIDFromRequest(r)),
				)

				if w.Header().Get("Content-Type") == "" {
					api.Error(w, http.StatusGatewayTimeout, "Request deadline exceeded")
				}
			}
		})
	}
}
