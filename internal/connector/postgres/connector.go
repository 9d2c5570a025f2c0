package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/xyntoro/xyntoro/internal/connector"
)

// PostgresConnector implements connector.Connector for PostgreSQL databases.
type PostgresConnector struct {
	db *sqlx.DB
}

// New creates a new PostgresConnector.
func New() connector.Connector {
	return &PostgresConnector{}
}

// Connect establishes a pgx-backed pool for a postgres:// or postgresql://
// URI. Credentials are re-encoded first so raw special characters in the
// password do not break URL parsing.
func (c *PostgresConnector) Connect(ctx context.Context, cfg connector.ConnectionConfig) error {
	db, err := connector.Open(ctx, "pgx", connector.SanitizeDSN(cfg.URI), cfg)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *PostgresConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *PostgresConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for PostgreSQL.
func (c *PostgresConnector) DriverName() string { return "postgres" }
