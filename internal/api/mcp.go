package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/anajobs/anajobs/internal/store"
)

// MCPDirectory abstracts the organization store for the MCP layer.
type MCPDirectory interface {
	Search(ctx context.Context, term string, limit int64) ([]store.Organization, error)
	Unscraped(ctx context.Context, limit int64) ([]store.Organization, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// NewMCPServer creates an MCP server exposing the organization directory as
// tools for agent use.
func NewMCPServer(dir MCPDirectory, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"anajobs",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("anajobs — nonprofit organization directory with career page and job title data."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_organizations",
			mcp.WithDescription("Search nonprofit organizations by name substring (case-insensitive)."),
			mcp.WithString("term", mcp.Description("Name fragment to search for"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearch(dir),
	)

	s.AddTool(
		mcp.NewTool("database_stats",
			mcp.WithDescription("Return counts of total, scraped, job-title-bearing, and .org organizations."),
		),
		mcpStats(dir),
	)

	s.AddTool(
		mcp.NewTool("list_unscraped",
			mcp.WithDescription("List organizations whose career pages have not been scraped yet."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpUnscraped(dir),
	)

	return s
}

func mcpSearch(dir MCPDirectory) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term, err := req.RequireString("term")
		if err != nil {
			return mcpError("term is required"), nil
		}
		limit := clampLimit(req.GetInt("limit", defaultSearchLimit))

		orgs, err := dir.Search(ctx, term, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpJSON(orgs)
	}
}

func mcpStats(dir MCPDirectory) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := dir.Stats(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		return mcpJSON(stats)
	}
}

func mcpUnscraped(dir MCPDirectory) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := clampLimit(req.GetInt("limit", defaultSearchLimit))

		orgs, err := dir.Unscraped(ctx, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing unscraped failed: %v", err)), nil
		}
		return mcpJSON(orgs)
	}
}

func clampLimit(n int) int64 {
	if n <= 0 {
		return defaultSearchLimit
	}
	if n > maxSearchLimit {
		return maxSearchLimit
	}
	return int64(n)
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
