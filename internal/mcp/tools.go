package mcp

import "github.com/mark3labs/mcp-go/mcp"

// getContextTool defines the get_context MCP tool. It mirrors the /context
// HTTP endpoint: recency aggregation without a query, semantic retrieval
// with one.
var getContextTool = mcp.NewTool("get_context",
	mcp.WithDescription("Get sales context from Gmail, Zoom, Notion and Salesforce. With a query, results are ranked semantically; without one, the most recent items are returned."),
	mcp.WithString("query",
		mcp.Description("Natural language query. Leave empty for recent items."),
	),
	mcp.WithString("sources",
		mcp.Description("Comma-separated subset of gmail, zoom, notion, salesforce. Defaults to all."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of items to return (default 10)"),
	),
	mcp.WithNumber("days_back",
		mcp.Description("Lookback window in days for recency aggregation (default 7)"),
	),
	mcp.WithString("account_id",
		mcp.Description("Salesforce account id to focus on; returns the account and its contacts"),
	),
	mcp.WithBoolean("include_fresh",
		mcp.Description("Merge fresh live results into semantic matches"),
	),
)

// searchContextTool defines the search_context MCP tool, a direct query
// against the vector index.
var searchContextTool = mcp.NewTool("search_context",
	mcp.WithDescription("Search the indexed sales context semantically and return the matching chunks with similarity scores."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of chunks to return (default 10)"),
	),
	mcp.WithString("source",
		mcp.Description("Restrict results to one source"),
		mcp.Enum("gmail", "zoom", "notion", "salesforce"),
	),
	mcp.WithString("type",
		mcp.Description("Restrict results to one item type"),
		mcp.Enum("email", "meeting", "document", "opportunity", "account", "contact"),
	),
)
