package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vibecoding/mcp-server/internal/auth"
	"github.com/vibecoding/mcp-server/internal/db"
	"github.com/vibecoding/mcp-server/internal/retrieval"
	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

type stubProvider struct {
	items []schema.ContextItem
}

func (s *stubProvider) GetContext(_ context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error) {
	return &schema.ContextResponse{
		Source:       schema.ResponseSourceAggregation,
		ContextItems: s.items,
		Query:        req.Query,
		Timestamp:    time.Now(),
	}, nil
}

type stubIndexer struct{}

func (stubIndexer) AddItems(_ context.Context, items []schema.ContextItem) (int, error) {
	return len(items), nil
}

type stubSearcher struct {
	results []vectordb.SearchResult
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int, _ *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	return s.results, nil
}

func (s *stubSearcher) Count() int { return len(s.results) }

func newTestServer(t *testing.T) (*Server, *auth.Service, *auth.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := auth.NewStore(database)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	authSvc := auth.NewService(store, "test-secret", 60)

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	provider := &stubProvider{items: []schema.ContextItem{
		schema.NewItem("hello", nil, ts, schema.EmailDetail{Subject: "Hi", ThreadID: "t1", Date: ts}),
	}}
	retriever := retrieval.New(provider, stubIndexer{}, &stubSearcher{}, retrieval.BootstrapParams{})

	srv := New(Config{Port: 0, AllowAll: true, Version: "test"}, authSvc, retriever, provider)
	return srv, authSvc, store
}

func bearerToken(t *testing.T, authSvc *auth.Service, username string) string {
	t.Helper()
	token, err := authSvc.CreateAccessToken(username)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	return token
}

func TestHealthCheck(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
	if _, ok := body["indexed_chunks"]; !ok {
		t.Error("expected indexed_chunks in health body")
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/version", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestTokenEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	form := url.Values{"username": {"sales"}, "password": {"sales"}}
	req := httptest.NewRequest("POST", "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["access_token"] == "" {
		t.Error("missing access_token")
	}
	if body["token_type"] != "bearer" {
		t.Errorf("token_type = %v, want bearer", body["token_type"])
	}
}

func TestTokenEndpointBadCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t)

	form := url.Values{"username": {"sales"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("missing WWW-Authenticate challenge")
	}
}

func TestContextRequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/context", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestContextEndpoint(t *testing.T) {
	srv, authSvc, _ := newTestServer(t)
	token := bearerToken(t, authSvc, "sales")

	req := httptest.NewRequest("POST", "/context", strings.NewReader(`{"limit": 5}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["source"] != schema.ResponseSourceAggregation {
		t.Errorf("source = %v, want %s", body["source"], schema.ResponseSourceAggregation)
	}
	items, ok := body["context_items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("context_items = %v, want 1 item", body["context_items"])
	}
	first, _ := items[0].(map[string]any)
	if first["subject"] != "Hi" {
		t.Errorf("item payload not flattened: %v", first)
	}
}

func TestContextValidation(t *testing.T) {
	srv, authSvc, _ := newTestServer(t)
	token := bearerToken(t, authSvc, "sales")

	cases := []string{
		`{"sources": ["carrier-pigeon"]}`,
		`{"limit": -3}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest("POST", "/context", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestContextPermissionDenied(t *testing.T) {
	srv, authSvc, store := newTestServer(t)

	if err := store.CreateUser("zoomonly", "Zoom Only", "pw", []string{"zoom"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token := bearerToken(t, authSvc, "zoomonly")

	// Naming a forbidden source is rejected.
	req := httptest.NewRequest("POST", "/context", strings.NewReader(`{"sources": ["gmail"]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// Only explicitly listed sources are checked; a request without a
	// sources list is not rejected.
	req = httptest.NewRequest("POST", "/context", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unlisted sources, got %d", w.Code)
	}

	// The permitted source alone works.
	req = httptest.NewRequest("POST", "/context", strings.NewReader(`{"sources": ["zoom"]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRawContextTolerantBody(t *testing.T) {
	srv, authSvc, _ := newTestServer(t)
	token := bearerToken(t, authSvc, "admin")

	req := httptest.NewRequest("POST", "/raw-context", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["source"] != schema.ResponseSourceAggregation {
		t.Errorf("source = %v, want aggregation", body["source"])
	}
}
