package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/xyntoro/xyntoro/internal/connector"
)

// migrations holds the idempotent schema statements per SQL dialect, keyed
// by connector.Connector.DriverName.
var migrations = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS admins (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			picture TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'core',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contact_messages (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			heard_from TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_messages_created ON contact_messages(created_at)`,
	},

	"postgres": {
		`CREATE TABLE IF NOT EXISTS admins (
			username VARCHAR(255) PRIMARY KEY,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(255) NOT NULL,
			picture TEXT NOT NULL DEFAULT '',
			category VARCHAR(32) NOT NULL DEFAULT 'core',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contact_messages (
			id VARCHAR(36) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			heard_from VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_messages_created ON contact_messages(created_at)`,
	},

	"mysql": {
		`CREATE TABLE IF NOT EXISTS admins (
			username VARCHAR(255) PRIMARY KEY,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(255) NOT NULL,
			picture TEXT NOT NULL,
			category VARCHAR(32) NOT NULL DEFAULT 'core',
			sort_order INT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contact_messages (
			id VARCHAR(36) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			heard_from VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_contact_messages_created (created_at)
		)`,
	},

	"sqlserver": {
		`IF OBJECT_ID(N'admins', N'U') IS NULL CREATE TABLE admins (
			username NVARCHAR(255) PRIMARY KEY,
			password_hash NVARCHAR(255) NOT NULL,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL
		)`,
		`IF OBJECT_ID(N'team_members', N'U') IS NULL CREATE TABLE team_members (
			id NVARCHAR(36) PRIMARY KEY,
			name NVARCHAR(255) NOT NULL,
			role NVARCHAR(255) NOT NULL,
			picture NVARCHAR(MAX) NOT NULL DEFAULT '',
			category NVARCHAR(32) NOT NULL DEFAULT 'core',
			sort_order INT NOT NULL DEFAULT 0,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL
		)`,
		`IF OBJECT_ID(N'contact_messages', N'U') IS NULL CREATE TABLE contact_messages (
			id NVARCHAR(36) PRIMARY KEY,
			first_name NVARCHAR(255) NOT NULL,
			last_name NVARCHAR(255) NOT NULL DEFAULT '',
			email NVARCHAR(255) NOT NULL,
			phone NVARCHAR(64) NOT NULL DEFAULT '',
			heard_from NVARCHAR(255) NOT NULL,
			message NVARCHAR(MAX) NOT NULL,
			is_read BIT NOT NULL DEFAULT 0,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL
		)`,
		`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_contact_messages_created')
			CREATE INDEX idx_contact_messages_created ON contact_messages(created_at)`,
	},
}

// Migrate creates the schema on conn if it does not exist yet. It is safe to
// run on every connect and is wired as the Manager's OnConnect hook.
func Migrate(ctx context.Context, conn connector.Connector) error {
	stmts, ok := migrations[conn.DriverName()]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", conn.DriverName())
	}

	for _, m := range stmts {
		if _, err := conn.DB().ExecContext(ctx, m); err != nil {
			// Concurrent first starts can race on CREATE; an existing
			// object is the state we want.
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
