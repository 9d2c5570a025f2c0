package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xyntoro/xyntoro/internal/model"
)

const (
	defaultMessageLimit = 25
	maxMessageLimit     = 500
)

// registerTools registers all MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Team -----

	srv.AddTool(
		mcp.NewTool("xyntoro_list_team",
			mcp.WithDescription(
				"List the team members shown on the About page, in display order: "+
					"leadership first, then core, then support, each ordered by position.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("category",
				mcp.Description("Only return members of this category"),
				mcp.Enum(model.Categories...),
			),
		),
		s.handleListTeam,
	)

	srv.AddTool(
		mcp.NewTool("xyntoro_get_team_member",
			mcp.WithDescription("Get one team member by id."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Team member id (the _id field)"),
			),
		),
		s.handleGetTeamMember,
	)

	// ----- Contact inbox -----

	srv.AddTool(
		mcp.NewTool("xyntoro_list_messages",
			mcp.WithDescription(
				"List contact form messages, newest first. Use unread_only to see "+
					"what still needs attention.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("unread_only",
				mcp.Description("Only return messages not yet marked as read"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of messages to return (default 25, max 500)"),
			),
		),
		s.handleListMessages,
	)

	srv.AddTool(
		mcp.NewTool("xyntoro_unread_count",
			mcp.WithDescription("Count contact messages not yet marked as read."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleUnreadCount,
	)

	srv.AddTool(
		mcp.NewTool("xyntoro_mark_message_read",
			mcp.WithDescription("Mark a contact message as read. Returns the updated message."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Message id (the _id field)"),
			),
		),
		s.handleMarkMessageRead,
	)

	srv.AddTool(
		mcp.NewTool("xyntoro_delete_message",
			mcp.WithDescription("Permanently delete a contact message."),
			mcp.WithToolAnnotation(destructiveAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Message id (the _id field)"),
			),
		),
		s.handleDeleteMessage,
	)
}

func (s *MCPServer) handleListTeam(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	category := request.GetString("category", "")
	if category != "" && !model.ValidCategory(category) {
		return toolError("Unknown category %q. Valid categories: %v", category, model.Categories)
	}

	members, err := s.store.ListTeamMembers(ctx)
	if err != nil {
		return storeError("list team", err)
	}

	if category != "" {
		filtered := make([]model.TeamMember, 0, len(members))
		for _, m := range members {
			if m.Category == category {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	return successJSON(members)
}

func (s *MCPServer) handleGetTeamMember(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	m, err := s.store.GetTeamMember(ctx, id)
	if err != nil {
		return storeError("get team member", err)
	}
	return successJSON(m)
}

func (s *MCPServer) handleListMessages(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	unreadOnly := request.GetBool("unread_only", false)
	limit := clamp(request.GetInt("limit", defaultMessageLimit), 1, maxMessageLimit)

	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return storeError("list messages", err)
	}

	out := make([]model.ContactMessage, 0, len(msgs))
	for _, m := range msgs {
		if unreadOnly && m.Read {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return successJSON(out)
}

func (s *MCPServer) handleUnreadCount(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	n, err := s.store.CountUnreadMessages(ctx)
	if err != nil {
		return storeError("count unread messages", err)
	}
	return successJSON(map[string]int{"count": n})
}

func (s *MCPServer) handleMarkMessageRead(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	m, err := s.store.MarkMessageRead(ctx, id)
	if err != nil {
		return storeError("mark message read", err)
	}
	s.logger.Info("message marked read via MCP", "id", id)
	return successJSON(m)
}

func (s *MCPServer) handleDeleteMessage(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return storeError("delete message", err)
	}
	s.logger.Info("message deleted via MCP", "id", id)
	return successJSON(map[string]interface{}{"deleted": id})
}
