package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/connector/sqlite"
	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/service"
	"github.com/xyntoro/xyntoro/internal/storage"
	"github.com/xyntoro/xyntoro/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testJWTSecret = "test-secret-for-jwt-integration-tests"
	testUsername  = "admin"
	testPassword  = "admin123"
)

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	db      *connector.Manager
	store   *store.Store
	authSvc *service.AuthService
	uploads string
}

func testRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver(sqlite.New, "sqlite")
	return registry
}

// newTestEnv creates a fresh test environment with an in-memory SQLite
// database, a temporary upload directory and a fully wired Server. The
// global rate limit is off so tests can issue as many requests as they need.
func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()
	return newTestEnvWithURI(t, "sqlite://:memory:", configure...)
}

func newTestEnvWithURI(t *testing.T, uri string, configure ...func(*Config)) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db := connector.NewManager(testRegistry(),
		connector.ConnectionConfig{URI: uri},
		connector.WithOnConnect(store.Migrate),
		connector.WithLogger(logger),
	)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	authSvc := service.NewAuthService(st,
		service.BcryptHasher{Cost: bcrypt.MinCost},
		service.NewTokens(testJWTSecret, 24*time.Hour),
	)

	uploads := t.TempDir()
	images, err := storage.NewLocal(uploads)
	if err != nil {
		t.Fatalf("storage.NewLocal: %v", err)
	}

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testEnv{
		server:  New(cfg, db, st, authSvc, images, logger),
		db:      db,
		store:   st,
		authSvc: authSvc,
		uploads: uploads,
	}
}

// seedAdmin provisions the default admin account.
func (e *testEnv) seedAdmin(t *testing.T) {
	t.Helper()
	if _, err := e.authSvc.ProvisionAdmin(context.Background(), testUsername, testPassword); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
}

// login signs in as the default admin and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/auth/login", jsonBody(t, map[string]string{
		"username": testUsername,
		"password": testPassword,
	}), nil)
	assertStatus(t, rr, http.StatusOK)

	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login: no session cookie")
	return nil
}

// do executes an HTTP request against the test server and returns the recorder.
// cookie, when not nil, is sent with the request.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func assertErrorMessage(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Code != rr.Code {
		t.Errorf("error.code = %d, want %d", resp.Error.Code, rr.Code)
	}
	if resp.Error.Message != want {
		t.Errorf("error.message = %q, want %q", resp.Error.Message, want)
	}
}

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/health", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "OK" {
		t.Errorf("status = %q, want %q", resp["status"], "OK")
	}
	if resp["database"] != "absent" {
		t.Errorf("database = %q, want absent before any API request", resp["database"])
	}

	// The first API request connects; health then reports ready.
	assertStatus(t, env.do(t, "GET", "/api/team", nil, nil), http.StatusOK)
	rr = env.do(t, "GET", "/api/health", nil, nil)
	decodeJSON(t, rr, &resp)
	if resp["database"] != "ready" {
		t.Errorf("database = %q, want ready", resp["database"])
	}
}

// ---------------------------------------------------------------------------
// Database availability
// ---------------------------------------------------------------------------

func TestDatabaseNotConfigured(t *testing.T) {
	env := newTestEnvWithURI(t, "")

	rr := env.do(t, "GET", "/api/team", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
	assertErrorMessage(t, rr, "Database is not configured")

	// Login is gated as well, before credentials are looked at.
	rr = env.do(t, "POST", "/api/auth/login", jsonBody(t, map[string]string{
		"username": testUsername, "password": testPassword,
	}), nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)

	// Health and logout still answer.
	assertStatus(t, env.do(t, "GET", "/api/health", nil, nil), http.StatusOK)
	rr = env.do(t, "POST", "/api/auth/logout", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if cookies := rr.Result().Cookies(); len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("logout cookies = %v, want one expired cookie", cookies)
	}
	if env.db.State() != connector.StateAbsent {
		t.Errorf("state = %v, want absent", env.db.State())
	}
}

func TestDatabaseUnavailable(t *testing.T) {
	env := newTestEnvWithURI(t, "oracle://db.internal/site")

	rr := env.do(t, "GET", "/api/messages", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
	assertErrorMessage(t, rr, "Database unavailable")

	if env.db.State() != connector.StateFailed {
		t.Errorf("state = %v, want failed", env.db.State())
	}
}

// ---------------------------------------------------------------------------
// Session tests
// ---------------------------------------------------------------------------

func TestLoginAndCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	cookie := env.login(t)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	rr := env.do(t, "GET", "/api/auth/check", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["authenticated"] != true || resp["username"] != testUsername {
		t.Errorf("check = %v", resp)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	rr := env.do(t, "POST", "/api/auth/login", jsonBody(t, map[string]string{
		"username": testUsername, "password": "wrong-password",
	}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)
	assertErrorMessage(t, rr, "Invalid credentials")
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.LoginPerMinute = 2 })
	env.seedAdmin(t)

	body := func() io.Reader {
		return jsonBody(t, map[string]string{"username": testUsername, "password": "wrong-password"})
	}
	assertStatus(t, env.do(t, "POST", "/api/auth/login", body(), nil), http.StatusUnauthorized)
	assertStatus(t, env.do(t, "POST", "/api/auth/login", body(), nil), http.StatusUnauthorized)

	rr := env.do(t, "POST", "/api/auth/login", body(), nil)
	assertStatus(t, rr, http.StatusTooManyRequests)
}

func TestGuardedEndpoints_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/auth/check"},
		{"POST", "/api/team"},
		{"PUT", "/api/team/abc"},
		{"DELETE", "/api/team/abc"},
		{"GET", "/api/messages"},
		{"GET", "/api/messages/unread-count"},
		{"PUT", "/api/messages/abc/read"},
		{"DELETE", "/api/messages/abc"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rr := env.do(t, ep.method, ep.path, nil, nil)
			assertStatus(t, rr, http.StatusUnauthorized)
			assertErrorMessage(t, rr, "Unauthorized")
		})
	}
}

func TestGuard_RejectionsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)

	expired := service.NewTokens(testJWTSecret, time.Hour,
		service.WithTokenClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	expiredToken, _, err := expired.Issue(testUsername)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	forged, _, err := service.NewTokens("some-other-secret", time.Hour).Issue(testUsername)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var bodies []string
	for _, cookie := range []*http.Cookie{
		nil,
		{Name: "token", Value: "not-a-jwt"},
		{Name: "token", Value: expiredToken},
		{Name: "token", Value: forged},
	} {
		rr := env.do(t, "GET", "/api/messages", nil, cookie)
		assertStatus(t, rr, http.StatusUnauthorized)
		bodies = append(bodies, rr.Body.String())
	}
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("body %d = %q, want %q", i, bodies[i], bodies[0])
		}
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/auth/logout", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("Set-Cookie = %q, want an expired cookie", rr.Header().Get("Set-Cookie"))
	}
}

// ---------------------------------------------------------------------------
// Full workflow
// ---------------------------------------------------------------------------

func TestFullWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	cookie := env.login(t)

	// Create support first, then leadership; listing puts leadership first.
	for _, m := range []map[string]interface{}{
		{"name": "Sam", "role": "Support Lead", "category": "support"},
		{"name": "Lee", "role": "Founder", "category": "leadership"},
	} {
		assertStatus(t, env.do(t, "POST", "/api/team", jsonBody(t, m), cookie), http.StatusCreated)
	}

	rr := env.do(t, "GET", "/api/team", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var members []model.TeamMember
	decodeJSON(t, rr, &members)
	if len(members) != 2 || members[0].Name != "Lee" || members[1].Name != "Sam" {
		t.Fatalf("members = %+v, want Lee then Sam", members)
	}

	// A visitor submits the contact form.
	rr = env.do(t, "POST", "/api/messages", jsonBody(t, map[string]string{
		"firstName": "Ada", "email": "ada@example.com", "heardFrom": "Search", "message": "Hi!",
	}), nil)
	assertStatus(t, rr, http.StatusCreated)

	rr = env.do(t, "GET", "/api/messages/unread-count", nil, cookie)
	assertStatus(t, rr, http.StatusOK)
	var count map[string]int
	decodeJSON(t, rr, &count)
	if count["count"] != 1 {
		t.Errorf("unread = %d, want 1", count["count"])
	}

	rr = env.do(t, "GET", "/api/messages", nil, cookie)
	var msgs []model.ContactMessage
	decodeJSON(t, rr, &msgs)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	assertStatus(t, env.do(t, "PUT", "/api/messages/"+msgs[0].ID+"/read", nil, cookie), http.StatusOK)

	rr = env.do(t, "GET", "/api/messages/unread-count", nil, cookie)
	decodeJSON(t, rr, &count)
	if count["count"] != 0 {
		t.Errorf("unread = %d, want 0", count["count"])
	}

	// Delete a member; the public list shrinks.
	assertStatus(t, env.do(t, "DELETE", "/api/team/"+members[1].ID, nil, cookie), http.StatusOK)
	rr = env.do(t, "GET", "/api/team", nil, nil)
	decodeJSON(t, rr, &members)
	if len(members) != 1 {
		t.Errorf("members = %d, want 1", len(members))
	}
}

// ---------------------------------------------------------------------------
// Surface tests
// ---------------------------------------------------------------------------

func TestOpenAPIDocument(t *testing.T) {
	env := newTestEnvWithURI(t, "")

	rr := env.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var doc map[string]interface{}
	decodeJSON(t, rr, &doc)
	paths, _ := doc["paths"].(map[string]interface{})
	if _, ok := paths["/api/team"]; !ok {
		t.Error("/api/team missing from OpenAPI document")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/health", nil, nil)
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cross-Origin-Resource-Policy"); got != "cross-origin" {
		t.Errorf("Cross-Origin-Resource-Policy = %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/team", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/team", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr = httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for foreign origin", got)
	}
}

func TestUploadsServed(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(env.uploads, "pic.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	rr := env.do(t, "GET", "/uploads/pic.png", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "png" {
		t.Errorf("body = %q", rr.Body.String())
	}

	assertStatus(t, env.do(t, "GET", "/uploads/", nil, nil), http.StatusNotFound)
	assertStatus(t, env.do(t, "GET", "/uploads/missing.png", nil, nil), http.StatusNotFound)
}

func TestStaticSiteFallback(t *testing.T) {
	site := t.TempDir()
	os.WriteFile(filepath.Join(site, "index.html"), []byte("<html>site</html>"), 0o644)
	os.WriteFile(filepath.Join(site, "app.js"), []byte("console.log(1)"), 0o644)

	env := newTestEnv(t, func(c *Config) { c.StaticDir = site })

	rr := env.do(t, "GET", "/app.js", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "console.log(1)" {
		t.Errorf("app.js body = %q", rr.Body.String())
	}

	rr = env.do(t, "GET", "/admin/dashboard", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "site") {
		t.Errorf("SPA fallback body = %q", rr.Body.String())
	}

	// Unknown API paths never fall back to the site.
	rr = env.do(t, "GET", "/api/unknown", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
	assertContentType(t, rr, "application/json")
}

func TestNotFoundWithoutStaticSite(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/about", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
	assertErrorMessage(t, rr, "Not found")
}
