package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/xyntoro/xyntoro/internal/config"
	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/connector/mssql"
	"github.com/xyntoro/xyntoro/internal/connector/mysql"
	"github.com/xyntoro/xyntoro/internal/connector/postgres"
	"github.com/xyntoro/xyntoro/internal/connector/sqlite"
	"github.com/xyntoro/xyntoro/internal/service"
	"github.com/xyntoro/xyntoro/internal/storage"
	"github.com/xyntoro/xyntoro/internal/store"
)

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver(sqlite.New, "sqlite")
	registry.RegisterDriver(postgres.New, "postgres", "postgresql")
	registry.RegisterDriver(mysql.New, "mysql")
	registry.RegisterDriver(mssql.New, "sqlserver")
	return registry
}

// loadConfig decodes the effective viper settings.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger from the log settings. debug forces
// the debug level.
func newLogger(cfg config.LogConfig, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openDatabase returns the lazily connecting database manager. Nothing is
// dialed until the first Ensure.
func openDatabase(cfg config.DatabaseConfig, logger *slog.Logger) *connector.Manager {
	return connector.NewManager(newRegistry(),
		connector.ConnectionConfig{
			URI:             cfg.URI,
			ConnectTimeout:  cfg.ConnectTimeout,
			IdleTimeout:     cfg.IdleTimeout,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		},
		connector.WithOnConnect(store.Migrate),
		connector.WithLogger(logger),
	)
}

// newAuthService wires the credential store, bcrypt and the token issuer.
func newAuthService(cfg config.AuthConfig, st *store.Store) *service.AuthService {
	return service.NewAuthService(st, service.BcryptHasher{}, service.NewTokens(cfg.JWTSecret, cfg.TokenTTL))
}

// newImageStore opens the configured picture storage backend.
func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			Prefix:          cfg.S3.Prefix,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	case "local", "":
		local, err := storage.NewLocal(cfg.Local.Dir)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// connectStore opens the database and waits for the first connection, for
// commands that cannot do anything useful without it. The caller closes the
// returned manager.
func connectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, *connector.Manager, error) {
	db := openDatabase(cfg.Database, logger)
	if _, err := db.Ensure(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return store.New(db), db, nil
}
