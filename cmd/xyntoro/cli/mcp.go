package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xyntoro/xyntoro/internal/config"
	xmcp "github.com/xyntoro/xyntoro/internal/mcp"
	"github.com/xyntoro/xyntoro/internal/server/middleware"
	"github.com/xyntoro/xyntoro/internal/service"
	"github.com/xyntoro/xyntoro/internal/store"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the team roster
and the contact inbox as tools for AI agents. Supports stdio (default) and HTTP
transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with desktop MCP clients. Logs go to stderr.

In HTTP mode, every request to /mcp must carry "Authorization: Bearer <token>"
with a token from 'xyntoro admin token'. The listener binds to loopback unless
--host says otherwise.`,
		Example: `  xyntoro mcp                              # stdio mode
  xyntoro mcp --transport http --port 3001 # streamable HTTP mode on 127.0.0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, host, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport mode: stdio or http (default from mcp.transport)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host (only used with --transport http)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport, host string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.MCP.Transport
	}

	logger := newLogger(cfg.Log, false)

	db := openDatabase(cfg.Database, logger)
	defer db.Close()

	mcpSrv := xmcp.NewMCPServer(store.New(db), versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		if cfg.Auth.JWTSecret == "" {
			return config.ErrMissingJWTSecret
		}
		guard := middleware.BearerGuard(service.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), logger)
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		return mcpSrv.ListenHTTP(addr, guard)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
