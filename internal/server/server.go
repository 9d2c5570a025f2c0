package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/handler"
	"github.com/xyntoro/xyntoro/internal/openapi"
	"github.com/xyntoro/xyntoro/internal/server/middleware"
	"github.com/xyntoro/xyntoro/internal/service"
	"github.com/xyntoro/xyntoro/internal/storage"
	"github.com/xyntoro/xyntoro/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes

	// RateLimit requests per RateWindow per client IP. Zero disables it.
	RateLimit      int
	RateWindow     time.Duration
	LoginPerMinute int

	CookieName   string
	CookieSecure bool

	// StaticDir, when set, is served at / with index.html as the fallback
	// for unknown paths.
	StaticDir string
	Version   string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            5000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"http://localhost:5173"},
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		RateLimit:       100,
		RateWindow:      15 * time.Minute,
		LoginPerMinute:  10,
		CookieName:      "token",
		Version:         "dev",
	}
}

// Server is the top-level HTTP server for the site API. It owns the Chi
// router, the shared database connection, the store and the auth service.
type Server struct {
	cfg        Config
	router     chi.Router
	db         *connector.Manager
	store      *store.Store
	authSvc    *service.AuthService
	images     storage.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, db *connector.Manager, st *store.Store, authSvc *service.AuthService, images storage.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		db:      db,
		store:   st,
		authSvc: authSvc,
		images:  images,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger, "/api/health"))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
	}
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- OpenAPI document (no auth, no database) ---
	doc := openapi.Generate("/", s.cfg.Version, s.cfg.CookieName)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(doc).Serve)

	// --- Uploaded pictures kept on local disk ---
	if local, ok := s.images.(*storage.LocalStore); ok {
		r.Handle(storage.LocalURLPrefix+"*", http.StripPrefix(storage.LocalURLPrefix, uploadServer(local.Dir())))
	}

	guard := middleware.SessionGuard(s.cfg.CookieName, s.authSvc, s.logger)
	authHandler := handler.NewAuthHandler(s.authSvc, handler.CookieConfig{
		Name:   s.cfg.CookieName,
		Secure: s.cfg.CookieSecure,
	}, s.logger)
	teamHandler := handler.NewTeamHandler(s.store, s.images, s.logger)
	msgHandler := handler.NewMessageHandler(s.store, s.logger)

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		// Health and logout never touch the database.
		r.Get("/health", s.handleHealth)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDatabase(s.db, s.logger))

			loginLimit := func(next http.Handler) http.Handler { return next }
			if s.cfg.LoginPerMinute > 0 {
				loginLimit = middleware.LoginRateLimit(s.cfg.LoginPerMinute)
			}
			r.With(loginLimit).Post("/auth/login", authHandler.Login)
			r.With(guard).Get("/auth/check", authHandler.Check)

			r.Route("/team", func(r chi.Router) {
				r.Get("/", teamHandler.List)
				r.Get("/{id}", teamHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(guard)
					r.Post("/", teamHandler.Create)
					r.Put("/{id}", teamHandler.Update)
					r.Delete("/{id}", teamHandler.Delete)
				})
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", msgHandler.Create)

				r.Group(func(r chi.Router) {
					r.Use(guard)
					r.Get("/", msgHandler.List)
					r.Get("/unread-count", msgHandler.UnreadCount)
					r.Put("/{id}/read", msgHandler.MarkRead)
					r.Delete("/{id}", msgHandler.Delete)
				})
			})
		})
	})

	r.NotFound(s.handleNotFound)

	s.router = r
}

// handleHealth is a liveness check. It reports the connection state without
// starting a connection attempt, so it answers even when the database is
// unconfigured or down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "OK",
		"message":  "Xyntoro API is running",
		"database": s.db.State().String(),
	})
}

// handleNotFound answers unknown API paths with the JSON envelope and, when a
// static site is configured, serves it with index.html as the SPA fallback.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") ||
		(r.Method != http.MethodGet && r.Method != http.MethodHead) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	siteFS := os.DirFS(s.cfg.StaticDir)
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" {
		if info, err := fs.Stat(siteFS, name); err == nil && !info.IsDir() {
			http.FileServer(http.FS(siteFS)).ServeHTTP(w, r)
			return
		}
	}

	f, err := siteFS.Open("index.html")
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", stat.ModTime(), f.(io.ReadSeeker))
}

// uploadServer serves files from dir without directory listings.
func uploadServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database connection.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
