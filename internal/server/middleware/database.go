package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xyntoro/xyntoro/internal/connector"
)

// Ensurer provides the shared database connection. *connector.Manager
// implements it.
type Ensurer interface {
	Ensure(ctx context.Context) (connector.Connector, error)
}

// RequireDatabase returns an HTTP middleware that makes sure the shared
// database connection is ready before the request reaches its handler. The
// first requests after startup, or after a failed attempt, wait on a single
// shared connection attempt. When the database cannot be reached the request
// is answered with 503.
func RequireDatabase(db Ensurer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := db.Ensure(r.Context()); err != nil {
				message := "Database unavailable"
				if errors.Is(err, connector.ErrConfigurationMissing) {
					message = "Database is not configured"
				}
				logger.Warn("database not ready",
					"path", r.URL.Path,
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				WriteError(w, http.StatusServiceUnavailable, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
