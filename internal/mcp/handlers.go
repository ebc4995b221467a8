package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// handleGetContext runs the full retrieval flow and returns the response as
// JSON text.
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := &schema.ContextRequest{
		Query: request.GetString("query", ""),
		Limit: request.GetInt("limit", 0),
	}

	if sources := request.GetString("sources", ""); sources != "" {
		for _, src := range strings.Split(sources, ",") {
			req.Sources = append(req.Sources, strings.TrimSpace(src))
		}
	}

	timeRange := map[string]any{}
	if days := request.GetInt("days_back", 0); days > 0 {
		timeRange["days_back"] = days
	}
	if request.GetBool("include_fresh", false) {
		timeRange["include_fresh"] = true
	}
	if len(timeRange) > 0 {
		req.TimeRange = timeRange
	}

	if accountID := request.GetString("account_id", ""); accountID != "" {
		req.EntityFocus = map[string]any{"account_id": accountID}
	}

	if err := req.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.retriever.GetContext(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context retrieval failed: %v", err)), nil
	}

	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// handleSearchContext queries the vector index directly.
func (s *Server) handleSearchContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var filter *vectordb.SearchFilter
	source := request.GetString("source", "")
	itemType := request.GetString("type", "")
	if source != "" || itemType != "" {
		filter = &vectordb.SearchFilter{Source: source, Type: itemType}
	}

	results, err := s.store.Search(ctx, query, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The index may be empty; run the get_context tool or `vibemcp bootstrap` to fill it."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}
