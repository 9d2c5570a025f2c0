package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/xyntoro/xyntoro/internal/connector"
)

const memoryPath = ":memory:"

// SQLiteConnector implements connector.Connector for SQLite databases.
type SQLiteConnector struct {
	db *sqlx.DB
}

// New creates a new SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the database named by a sqlite:// URI. "sqlite://data/site.db"
// is relative to the working directory, "sqlite:///var/lib/site.db" is
// absolute and "sqlite://:memory:" is a private in-memory database.
func (c *SQLiteConnector) Connect(ctx context.Context, cfg connector.ConnectionConfig) error {
	path, err := Path(cfg.URI)
	if err != nil {
		return err
	}
	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("sqlite connect: create directory: %w", err)
			}
		}
	}

	// SQLite allows one writer at a time; a single connection also keeps an
	// in-memory database alive for the life of the pool.
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	if path == memoryPath {
		cfg.IdleTimeout = 0
		cfg.ConnMaxLifetime = 0
	}

	db, err := connector.Open(ctx, "sqlite", DSN(path), cfg)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}
	c.db = db
	return nil
}

// Path extracts the file path from a sqlite:// URI.
func Path(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "sqlite://")
	if !ok {
		return "", fmt.Errorf("sqlite connect: URI must start with sqlite://")
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" || rest == memoryPath {
		return memoryPath, nil
	}
	return rest, nil
}

// DSN returns the modernc.org/sqlite DSN for path with foreign keys and a
// busy timeout enabled.
func DSN(path string) string {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	return dsn
}

// Disconnect closes the database connection.
func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLiteConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for SQLite.
func (c *SQLiteConnector) DriverName() string { return "sqlite" }
