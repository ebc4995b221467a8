package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vibecoding/mcp-server/internal/retrieval"
	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// mockStore implements vectordb.VectorStore for testing.
type mockStore struct {
	docs []vectordb.Document
}

func (m *mockStore) AddDocuments(_ context.Context, docs []vectordb.Document) error {
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *mockStore) Search(_ context.Context, _ string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	var results []vectordb.SearchResult
	for _, doc := range m.docs {
		if filter != nil && filter.Source != "" && doc.Metadata[vectordb.MetaSource] != filter.Source {
			continue
		}
		if filter != nil && filter.Type != "" && doc.Metadata[vectordb.MetaType] != filter.Type {
			continue
		}
		results = append(results, vectordb.SearchResult{Document: doc, Similarity: 0.95})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockStore) DeleteBySource(_ context.Context, _ string) error { return nil }
func (m *mockStore) Count() int                                       { return len(m.docs) }

type mockProvider struct{}

func (mockProvider) GetContext(_ context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &schema.ContextResponse{
		Source: schema.ResponseSourceAggregation,
		ContextItems: []schema.ContextItem{
			schema.NewItem("fresh email", nil, ts, schema.EmailDetail{Subject: "Fresh", ThreadID: "t1", Date: ts}),
		},
		Query:     req.Query,
		Timestamp: ts,
	}, nil
}

type mockIndexer struct{}

func (mockIndexer) AddItems(_ context.Context, items []schema.ContextItem) (int, error) {
	return len(items), nil
}

func newTestMCPServer(store *mockStore) *Server {
	retriever := retrieval.New(mockProvider{}, mockIndexer{}, store, retrieval.BootstrapParams{})
	return NewServer(retriever, store)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"get_context", getContextTool, "get_context"},
		{"search_context", searchContextTool, "search_context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	store := &mockStore{}
	srv := newTestMCPServer(store)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.store != store {
		t.Error("store not set correctly")
	}
}

func TestHandleGetContext(t *testing.T) {
	srv := newTestMCPServer(&mockStore{})
	ctx := context.Background()

	t.Run("recency without query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleGetContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"sources": "carrier-pigeon",
		}

		result, err := srv.handleGetContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown source")
		}
	})
}

func TestHandleSearchContext(t *testing.T) {
	store := &mockStore{
		docs: []vectordb.Document{
			{
				ID:      "gmail:t1:0",
				Content: "Email about pricing",
				Metadata: map[string]string{
					vectordb.MetaSource: "gmail",
					vectordb.MetaType:   "email",
				},
			},
			{
				ID:      "zoom:m1:0",
				Content: "Meeting about onboarding",
				Metadata: map[string]string{
					vectordb.MetaSource: "zoom",
					vectordb.MetaType:   "meeting",
				},
			},
		},
	}
	srv := newTestMCPServer(store)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "pricing",
		}

		result, err := srv.handleSearchContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("search with source filter", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":  "meeting",
			"source": "zoom",
		}

		result, err := srv.handleSearchContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if strings.Contains(text, "gmail") {
			t.Errorf("filtered search leaked other sources: %s", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty store", func(t *testing.T) {
		emptySrv := newTestMCPServer(&mockStore{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "anything",
		}

		result, err := emptySrv.handleSearchContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.Contains(resultText(t, result), "No results found") {
			t.Error("expected empty-index message")
		}
	})
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content is not text: %T", result.Content[0])
	}
	return text.Text
}
