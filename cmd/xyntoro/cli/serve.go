package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xyntoro/xyntoro/internal/config"
	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/server"
	"github.com/xyntoro/xyntoro/internal/store"
)

const banner = `
__  ____   ___   _ _____ ___  ____   ___
\ \/ /\ \ / / \ | |_   _/ _ \|  _ \ / _ \
 \  /  \ V /|  \| | | || | | | |_) | | | |
 /  \   | | | |\  | | || |_| |  _ <| |_| |
/_/\_\  |_| |_| \_| |_| \___/|_| \_\\___/
`

// startupConnectTimeout bounds the connection attempt made before listening.
const startupConnectTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Xyntoro API server",
		Long: `Start the HTTP server for the website API.

The database is connected lazily. A missing or unreachable database does not
stop the server: data endpoints answer 503 until it becomes available, while
/api/health keeps reporting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 5000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("static-dir", "", "Serve a built frontend from this directory")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	maxBody, err := config.ParseSize(cfg.Server.MaxBodySize)
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg.Log, dev)

	// 1. Database manager. Nothing is dialed yet.
	db := openDatabase(cfg.Database, logger)
	st := store.New(db)

	// 2. Picture storage
	images, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		return fmt.Errorf("init image storage: %w", err)
	}
	logger.Info("image storage initialized", "backend", cfg.Storage.Backend)

	// 3. Auth service
	authSvc := newAuthService(cfg.Auth, st)

	// 4. Warm up the connection and check that someone can log in.
	warmUp(ctx, db, st, logger)

	// 5. Build and start HTTP server
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORS.Origins,
		MaxBodySize:     maxBody,
		RateLimit:       cfg.Server.RateLimit.Requests,
		RateWindow:      cfg.Server.RateLimit.Window,
		LoginPerMinute:  cfg.Server.RateLimit.LoginPerMinute,
		CookieName:      cfg.Auth.CookieName,
		CookieSecure:    cfg.Auth.CookieSecure,
		StaticDir:       cfg.Server.StaticDir,
		Version:         versionString(),
	}

	srv := server.New(srvCfg, db, st, authSvc, images, logger)

	base := "http://" + net.JoinHostPort(displayHost(cfg.Server.Host), strconv.Itoa(cfg.Server.Port))
	fmt.Printf("→ Xyntoro %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	fmt.Printf("→ API:        %s/api\n", base)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ Health:     %s/api/health\n", base)
	if cfg.Server.StaticDir != "" {
		fmt.Printf("→ Site:       %s/ (from %s)\n", base, cfg.Server.StaticDir)
	}
	fmt.Printf("→ Database:   %s\n", db.State())
	fmt.Println()

	return srv.ListenAndServe()
}

// warmUp makes one bounded connection attempt so migrations run before the
// first request. Failures are logged and left for the request path to retry.
func warmUp(ctx context.Context, db *connector.Manager, st *store.Store, logger *slog.Logger) {
	if !db.Configured() {
		logger.Warn("database.uri is not set; data endpoints will answer 503 (set XYNTORO_DATABASE_URI)")
		return
	}

	warmCtx, cancel := context.WithTimeout(ctx, startupConnectTimeout)
	defer cancel()

	if _, err := db.Ensure(warmCtx); err != nil {
		if errors.Is(err, connector.ErrConnection) {
			logger.Warn("database unavailable at startup, will retry on demand", "error", err)
		} else {
			logger.Warn("database not ready", "error", err)
		}
		return
	}

	hasAdmin, err := st.HasAnyAdmin(warmCtx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
		return
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: xyntoro admin create --username <name>")
	}
}

// displayHost maps wildcard listen addresses to loopback for printed URLs.
func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "localhost"
	}
	return host
}
