package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if respID := rr.Header().Get("X-Request-ID"); respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", 200), "tab\there"} {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		RequestID(okHandler).ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q should be replaced, got %q", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// SessionGuard tests
// ---------------------------------------------------------------------------

func newGuard(t *testing.T, logs *bytes.Buffer) (func(http.Handler) http.Handler, *service.Tokens) {
	t.Helper()
	tokens := service.NewTokens("guard-test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(logs, nil))
	return SessionGuard("token", tokens, logger), tokens
}

func TestSessionGuardAdmitsValidToken(t *testing.T) {
	var logs bytes.Buffer
	guard, tokens := newGuard(t, &logs)
	token, _, err := tokens.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *Principal
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/messages", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got == nil || got.Username != "admin" {
		t.Fatalf("principal = %+v, want admin", got)
	}
}

func TestSessionGuardRejectionsLookIdentical(t *testing.T) {
	var logs bytes.Buffer
	guard, _ := newGuard(t, &logs)
	other := service.NewTokens("different-secret", time.Hour)
	forged, _, _ := other.Issue("admin")

	called := false
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	send := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/team", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	missing := send(nil)
	invalid := send(&http.Cookie{Name: "token", Value: forged})

	if called {
		t.Fatal("protected handler must not run")
	}
	for name, rr := range map[string]*httptest.ResponseRecorder{"missing": missing, "invalid": invalid} {
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rr.Code)
		}
	}
	if missing.Body.String() != invalid.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", missing.Body.String(), invalid.Body.String())
	}

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(missing.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != 401 || body.Error.Message != "Unauthorized" {
		t.Errorf("body = %+v", body)
	}

	// The two reasons are distinguishable in the logs only.
	if !strings.Contains(logs.String(), ReasonAuthenticationRequired) || !strings.Contains(logs.String(), ReasonInvalidToken) {
		t.Errorf("expected both reasons in logs:\n%s", logs.String())
	}
}

func TestGetPrincipalWithoutValue(t *testing.T) {
	if p := GetPrincipal(context.Background()); p != nil {
		t.Errorf("expected nil principal, got %+v", p)
	}
	ctx := WithPrincipal(context.Background(), &Principal{Username: "admin"})
	if p := GetPrincipal(ctx); p == nil || p.Username != "admin" {
		t.Errorf("principal = %+v", p)
	}
}

// ---------------------------------------------------------------------------
// RequireDatabase tests
// ---------------------------------------------------------------------------

type stubEnsurer struct {
	err   error
	calls int
}

func (s *stubEnsurer) Ensure(ctx context.Context) (connector.Connector, error) {
	s.calls++
	return nil, s.err
}

func TestRequireDatabase(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"ready", nil, http.StatusOK, ""},
		{"not configured", connector.ErrConfigurationMissing, http.StatusServiceUnavailable, "Database is not configured"},
		{"unreachable", fmtConnErr(), http.StatusServiceUnavailable, "Database unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &stubEnsurer{err: tt.err}
			handler := RequireDatabase(db, discardLogger())(okHandler)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/team", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantMsg != "" && !strings.Contains(rr.Body.String(), tt.wantMsg) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.wantMsg)
			}
			if db.calls != 1 {
				t.Errorf("Ensure calls = %d, want 1", db.calls)
			}
		})
	}
}

func fmtConnErr() error {
	return errors.Join(connector.ErrConnection, errors.New("dial tcp: connection refused"))
}

// ---------------------------------------------------------------------------
// RateLimit and headers
// ---------------------------------------------------------------------------

func TestRateLimitRejectsOverLimit(t *testing.T) {
	handler := RateLimit(2, time.Minute)(okHandler)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/team", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if !strings.Contains(last.Body.String(), `"code":429`) {
		t.Errorf("expected JSON error body, got %q", last.Body.String())
	}

	// A different client is unaffected.
	req := httptest.NewRequest("GET", "/api/team", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rr.Code)
	}
}

func TestBearerGuard(t *testing.T) {
	tokens := service.NewTokens("guard-test-secret", time.Hour)
	other := service.NewTokens("different-secret", time.Hour)
	valid, _, _ := tokens.Issue("admin")
	forged, _, _ := other.Issue("admin")

	var got *Principal
	handler := BearerGuard(tokens, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lower-case scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest("POST", "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && (got == nil || got.Username != "admin") {
				t.Errorf("principal = %+v, want admin", got)
			}
			if tt.want == http.StatusUnauthorized && got != nil {
				t.Error("protected handler must not run")
			}
		})
	}

	// A session cookie is not accepted in place of the header.
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: valid})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("cookie only: status = %d, want 401", rr.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecureHeaders(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "SAMEORIGIN",
		"Cross-Origin-Resource-Policy": "cross-origin",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	SecureHeaders(okHandler).ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=15552000") {
		t.Errorf("Strict-Transport-Security behind TLS proxy = %q", got)
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestLoggerQuietPaths(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := Logger(logger, "/api/health")(okHandler)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))
	if logs.Len() != 0 {
		t.Errorf("health check should log at debug, got %q", logs.String())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/team", nil))
	if !strings.Contains(logs.String(), "path=/api/team") {
		t.Errorf("expected access log line, got %q", logs.String())
	}
}
