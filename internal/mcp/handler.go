package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/store"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required, non-empty string argument.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// storeError turns a store failure into a tool error with a readable cause.
func storeError(action string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return toolError("%s: no record with that id", action)
	case errors.Is(err, connector.ErrConfigurationMissing):
		return toolError("%s: database is not configured (set XYNTORO_DATABASE_URI)", action)
	case errors.Is(err, connector.ErrConnection):
		return toolError("%s: database unavailable: %v", action, err)
	}
	return toolError("%s: %v", action, err)
}

// clamp constrains val to [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
