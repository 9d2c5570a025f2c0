// Package mcp exposes the site's admin data as Model Context Protocol tools
// so an assistant can read the team roster and work through the contact
// inbox.
package mcp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xyntoro/xyntoro/internal/store"
)

// MCPServer wraps the mcp-go server with the xyntoro tool and resource
// registrations.
type MCPServer struct {
	store  *store.Store
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all tools and resources.
// The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(st *store.Store, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:  st,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"Xyntoro Site Admin",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// HTTPPath is where the Streamable HTTP endpoint is mounted.
const HTTPPath = "/mcp"

// Handler returns the Streamable HTTP endpoint mounted at HTTPPath, with
// every request passed through guard first.
func (s *MCPServer) Handler(guard func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(HTTPPath, guard(server.NewStreamableHTTPServer(s.server)))
	return mux
}

// ListenHTTP serves Handler on addr (e.g. "127.0.0.1:3001") until the
// listener fails.
func (s *MCPServer) ListenHTTP(addr string, guard func(http.Handler) http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(guard),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("MCP HTTP server starting", "addr", addr, "path", HTTPPath)
	return srv.ListenAndServe()
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
	}
}

func destructiveAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
