package connector_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/connector/mssql"
	"github.com/xyntoro/xyntoro/internal/connector/mysql"
	"github.com/xyntoro/xyntoro/internal/connector/postgres"
	"github.com/xyntoro/xyntoro/internal/connector/sqlite"
)

func newRegistry() *connector.Registry {
	r := connector.NewRegistry()
	r.RegisterDriver(sqlite.New, "sqlite")
	r.RegisterDriver(postgres.New, "postgres", "postgresql")
	r.RegisterDriver(mysql.New, "mysql")
	r.RegisterDriver(mssql.New, "sqlserver")
	return r
}

// runManagerSuite connects through a Manager and runs a round trip query.
func runManagerSuite(t *testing.T, uri string) {
	t.Helper()
	if os.Getenv("XYNTORO_INTEGRATION") == "" {
		t.Skip("set XYNTORO_INTEGRATION=1 to run")
	}
	if uri == "" {
		t.Skip("connection URI not set")
	}

	m := connector.NewManager(newRegistry(), connector.ConnectionConfig{
		URI:            uri,
		ConnectTimeout: 15 * time.Second,
	})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := m.Ensure(ctx)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	var one int
	if err := conn.DB().GetContext(ctx, &one, "SELECT 1"); err != nil {
		t.Fatalf("SELECT 1: %v", err)
	}
	if one != 1 {
		t.Errorf("SELECT 1 returned %d", one)
	}
	t.Logf("%s ready via %s", conn.DriverName(), connector.RedactURI(uri))
}

func TestSQLiteIntegration(t *testing.T) {
	runManagerSuite(t, "sqlite://"+t.TempDir()+"/site.db")
}

func TestPostgresIntegration(t *testing.T) {
	runManagerSuite(t, os.Getenv("XYNTORO_TEST_POSTGRES_URI"))
}

func TestMySQLIntegration(t *testing.T) {
	runManagerSuite(t, os.Getenv("XYNTORO_TEST_MYSQL_URI"))
}

func TestMSSQLIntegration(t *testing.T) {
	runManagerSuite(t, os.Getenv("XYNTORO_TEST_MSSQL_URI"))
}
