package api

import (
	"context"
	"encoding/json"
	"errors"

	"prdchat/app/config"
	"prdchat/app/model"
	"prdchat/app/service/chat"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type mcpTool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

// NewMCPServer exposes the chat operations as MCP tools.
func NewMCPServer(chatSvc *chat.Service) *server.MCPServer {
	s := server.NewMCPServer("prdchat", config.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, t := range chatTools(chatSvc) {
		s.AddTool(t.tool, t.handler)
	}

	return s
}

func newMCPHandler(chatSvc *chat.Service) fiber.Handler {
	return adaptor.HTTPHandler(server.NewStreamableHTTPServer(
		NewMCPServer(chatSvc),
		server.WithStateLess(true),
	))
}

func chatTools(chatSvc *chat.Service) []mcpTool {
	return []mcpTool{
		{
			tool: mcp.NewTool("list_chats",
				mcp.WithDescription("List all PRD chat sessions as JSON array of objects with id and name fields."),
			),
			handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list, err := chatSvc.List(ctx)
				if err != nil {
					return toolError(err)
				}
				return toolJSON(list)
			},
		},
		{
			tool: mcp.NewTool("create_chat",
				mcp.WithDescription("Start a new PRD chat session. Returns JSON object with id and name fields."),
				mcp.WithString("name", mcp.Description("Display name, generated when omitted")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				session, err := chatSvc.Create(ctx, req.GetString("name", ""))
				if err != nil {
					return toolError(err)
				}
				return toolJSON(model.Summary{ID: session.ID, Name: session.Name})
			},
		},
		{
			tool: mcp.NewTool("post_message",
				mcp.WithDescription("Send a message to a PRD chat session and return the assistant reply. The updated document is available through get_prd."),
				mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat session id")),
				mcp.WithString("content", mcp.Required(), mcp.Description("User message")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("chat_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				content, err := req.RequireString("content")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				reply, err := chatSvc.PostMessage(ctx, id, content)
				if err != nil {
					return toolError(err)
				}
				return mcp.NewToolResultText(reply), nil
			},
		},
		{
			tool: mcp.NewTool("get_prd",
				mcp.WithDescription("Return the latest PRD markdown of a chat session."),
				mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat session id")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("chat_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				markdown, err := chatSvc.GetDocument(ctx, id)
				if err != nil {
					return toolError(err)
				}
				return mcp.NewToolResultText(markdown), nil
			},
		},
		{
			tool: mcp.NewTool("rename_chat",
				mcp.WithDescription("Rename a chat session."),
				mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat session id")),
				mcp.WithString("new_name", mcp.Required(), mcp.Description("New display name")),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("chat_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				name, err := req.RequireString("new_name")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if err = chatSvc.Rename(ctx, id, name); err != nil {
					return toolError(err)
				}
				return mcp.NewToolResultText("ok"), nil
			},
		},
		{
			tool: mcp.NewTool("delete_chat",
				mcp.WithDescription("Delete a chat session. Deleting a missing session succeeds."),
				mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat session id")),
				mcp.WithDestructiveHintAnnotation(true),
			),
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("chat_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if err = chatSvc.Delete(ctx, id); err != nil {
					return toolError(err)
				}
				return mcp.NewToolResultText("ok"), nil
			},
		},
	}
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports domain failures as tool results so the calling model can react to
// them. Only unexpected failures become protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return mcp.NewToolResultError("chat session not found"), nil
	case errors.Is(err, model.ErrInvalidArgument),
		errors.Is(err, model.ErrProviderInit),
		errors.Is(err, model.ErrProviderCall):
		return mcp.NewToolResultError(err.Error()), nil
	default:
		return nil, err
	}
}
