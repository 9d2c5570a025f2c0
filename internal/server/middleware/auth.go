package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated admin making the request.
type Principal struct {
	Username  string
	ExpiresAt time.Time
}

// TokenVerifier checks a session token. *service.Tokens and
// *service.AuthService implement it.
type TokenVerifier interface {
	Verify(token string) (*service.Identity, error)
}

// Reasons a request is rejected by SessionGuard. They are logged only; the
// client always sees the same response.
const (
	ReasonAuthenticationRequired = "authentication required"
	ReasonInvalidToken           = "invalid or expired token"
)

// SessionGuard returns an HTTP middleware that admits only requests carrying
// a valid session token in the named cookie. On success a Principal is
// attached to the request context. Missing and invalid tokens both get an
// identical 401 response.
func SessionGuard(cookieName string, verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string) {
				logger.Warn("session rejected",
					"reason", reason,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				reject(ReasonAuthenticationRequired)
				return
			}

			id, err := verifier.Verify(cookie.Value)
			if err != nil {
				reject(ReasonInvalidToken)
				return
			}

			principal := &Principal{Username: id.Username, ExpiresAt: id.ExpiresAt}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerGuard is SessionGuard for non-browser clients: the token comes from
// an "Authorization: Bearer" header instead of a cookie. Rejections are
// identical to SessionGuard's.
func BearerGuard(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string) {
				logger.Warn("bearer token rejected",
					"reason", reason,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="xyntoro"`)
				WriteError(w, http.StatusUnauthorized, "Unauthorized")
			}

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				reject(ReasonAuthenticationRequired)
				return
			}

			id, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				reject(ReasonInvalidToken)
				return
			}

			principal := &Principal{Username: id.Username, ExpiresAt: id.ExpiresAt}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, AuthPrincipalKey, p)
}

// WriteError writes the standard JSON error envelope. Middleware cannot use
// the handler package helpers without an import cycle.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
