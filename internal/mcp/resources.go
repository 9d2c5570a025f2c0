package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	teamResourceURI       = "xyntoro://team"
	teamMemberURITemplate = "xyntoro://team/{id}"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			teamResourceURI,
			"Team Roster",
			mcp.WithResourceDescription("All team members in the order the About page shows them."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleTeamResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			teamMemberURITemplate,
			"Team Member",
			mcp.WithTemplateDescription("A single team member profile."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleTeamMemberResource,
	)
}

func (s *MCPServer) handleTeamResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	members, err := s.store.ListTeamMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list team: %w", err)
	}
	return jsonResource(teamResourceURI, members)
}

func (s *MCPServer) handleTeamMemberResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	id := strings.TrimPrefix(uri, teamResourceURI+"/")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid team member URI %q: expected %s", uri, teamMemberURITemplate)
	}

	m, err := s.store.GetTeamMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("team member %q: %w", id, err)
	}
	return jsonResource(uri, m)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
