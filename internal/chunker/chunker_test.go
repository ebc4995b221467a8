package chunker

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("short text", 1000, 100)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("chunks = %q, want single unchanged chunk", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chunks := Split("", 1000, 100); chunks != nil {
		t.Fatalf("chunks = %q, want nil", chunks)
	}
}

func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("word ", 100) // 500 chars
	chunks := Split(text, 200, 50)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Errorf("chunk %d has %d chars, want <= 200", i, len(c))
		}
	}
	// Consecutive chunks share text because of the overlap.
	tail := chunks[0][len(chunks[0])-10:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Errorf("chunk 1 does not overlap chunk 0")
	}
}

func TestSplitCoversLongUnbrokenRuns(t *testing.T) {
	// A run longer than the overlap straddling a chunk boundary must not
	// lose any runes to the word-boundary backscan; base64 email bodies
	// and long URLs look exactly like this.
	run := strings.Repeat("X", 300)
	text := strings.Repeat("word ", 170) + run + " " + strings.Repeat("word ", 30)

	chunks := Split(text, 1000, 100)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want the text split", len(chunks))
	}

	covered := false
	for i, c := range chunks {
		if len([]rune(c)) > 1000 {
			t.Errorf("chunk %d has %d runes, want <= 1000", i, len([]rune(c)))
		}
		if strings.Contains(c, run) {
			covered = true
		}
	}
	if !covered {
		t.Error("no chunk contains the full unbroken run; runes were dropped at a boundary")
	}
}

func TestSplitBreaksAtWhitespace(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 50)
	chunks := Split(text, 100, 20)
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d does not end at a word boundary: %q", i, c[len(c)-10:])
		}
	}
}

type captureStore struct {
	docs []vectordb.Document
}

func (c *captureStore) AddDocuments(_ context.Context, docs []vectordb.Document) error {
	c.docs = append(c.docs, docs...)
	return nil
}

func TestPipelineAddItems(t *testing.T) {
	store := &captureStore{}
	p := NewPipeline(store, 100, 20)

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	items := []schema.ContextItem{
		schema.NewItem(strings.Repeat("pricing talk ", 30), map[string]any{
			"source": "gmail",
			"id":     "m1",
		}, ts, schema.EmailDetail{Subject: "Renewal", Sender: "alice@example.com", ThreadID: "t1", Date: ts}),
		schema.NewItem("", nil, ts, schema.MeetingDetail{Title: "Empty", MeetingID: "z9"}),
	}

	n, err := p.AddItems(context.Background(), items)
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if n != len(store.docs) {
		t.Fatalf("reported %d chunks, stored %d", n, len(store.docs))
	}
	if len(store.docs) < 2 {
		t.Fatalf("got %d chunks, want several from the long email", len(store.docs))
	}

	first := store.docs[0]
	if first.ID != "gmail:t1:0" {
		t.Errorf("chunk id = %q, want gmail:t1:0", first.ID)
	}
	if first.Metadata[vectordb.MetaSource] != "gmail" {
		t.Errorf("source metadata = %q", first.Metadata[vectordb.MetaSource])
	}
	if first.Metadata[vectordb.MetaType] != "email" {
		t.Errorf("type metadata = %q", first.Metadata[vectordb.MetaType])
	}
	if first.Metadata[vectordb.MetaItemID] != "t1" {
		t.Errorf("item id metadata = %q", first.Metadata[vectordb.MetaItemID])
	}
	if first.Metadata["subject"] != "Renewal" {
		t.Errorf("subject metadata = %q", first.Metadata["subject"])
	}
	if first.Metadata["sender"] != "alice@example.com" {
		t.Errorf("sender metadata = %q", first.Metadata["sender"])
	}
	if first.Metadata["date"] != "2024-06-01T10:00:00Z" {
		t.Errorf("date metadata = %q", first.Metadata["date"])
	}
	if first.Metadata[vectordb.MetaChunkIndex] != "0" {
		t.Errorf("chunk index = %q", first.Metadata[vectordb.MetaChunkIndex])
	}
	if first.Metadata[vectordb.MetaTimestamp] != "2024-06-01T10:00:00Z" {
		t.Errorf("timestamp metadata = %q", first.Metadata[vectordb.MetaTimestamp])
	}

	// All chunks of the item share the same id prefix and total count.
	total := first.Metadata[vectordb.MetaTotalChunks]
	for _, d := range store.docs {
		if !strings.HasPrefix(d.ID, "gmail:t1:") {
			t.Errorf("chunk id = %q, want gmail:t1: prefix", d.ID)
		}
		if d.Metadata[vectordb.MetaTotalChunks] != total {
			t.Errorf("total_chunks differs across chunks")
		}
	}
}

func TestPipelineSkipsAllEmpty(t *testing.T) {
	store := &captureStore{}
	p := NewPipeline(store, 0, 0)

	n, err := p.AddItems(context.Background(), []schema.ContextItem{
		schema.NewItem("", nil, time.Now(), schema.MeetingDetail{MeetingID: "z1"}),
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if n != 0 || len(store.docs) != 0 {
		t.Fatalf("stored %d chunks, want 0", len(store.docs))
	}
}

func TestPipelinePerTypeMetadata(t *testing.T) {
	store := &captureStore{}
	p := NewPipeline(store, 1000, 100)
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	items := []schema.ContextItem{
		schema.NewItem("meeting notes", nil, ts,
			schema.MeetingDetail{Title: "Kickoff", MeetingID: "z1", Date: ts}),
		schema.NewItem("page body", nil, ts,
			schema.DocumentDetail{Title: "Account plan", PageID: "p1", LastEdited: ts}),
		schema.NewItem("Opportunity: Acme", nil, ts,
			schema.OpportunityDetail{Name: "Acme renewal", Stage: "Open", OpportunityID: "006A"}),
	}
	if _, err := p.AddItems(context.Background(), items); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if len(store.docs) != 3 {
		t.Fatalf("got %d chunks, want 3", len(store.docs))
	}

	meeting := store.docs[0].Metadata
	if meeting["title"] != "Kickoff" || meeting["date"] != "2024-06-01T10:00:00Z" {
		t.Errorf("meeting metadata = %v", meeting)
	}
	document := store.docs[1].Metadata
	if document["title"] != "Account plan" || document["last_edited"] != "2024-06-01T10:00:00Z" {
		t.Errorf("document metadata = %v", document)
	}
	opportunity := store.docs[2].Metadata
	if opportunity["name"] != "Acme renewal" {
		t.Errorf("opportunity metadata = %v", opportunity)
	}
}

func TestPipelineCRMItemGetsRecordID(t *testing.T) {
	store := &captureStore{}
	p := NewPipeline(store, 1000, 100)

	item := schema.NewItem("Opportunity: Acme, Stage: Open", nil, time.Now(),
		schema.OpportunityDetail{Name: "Acme", Stage: "Open", OpportunityID: "006A"})

	if _, err := p.AddItems(context.Background(), []schema.ContextItem{item}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if len(store.docs) != 1 {
		t.Fatalf("got %d chunks, want 1", len(store.docs))
	}
	if store.docs[0].ID != "salesforce:006A:0" {
		t.Errorf("chunk id = %q, want salesforce:006A:0", store.docs[0].ID)
	}
}

// hashEmbedder produces deterministic normalized vectors so tests backed by
// a real store need no network.
type hashEmbedder struct{ dims int }

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%h.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (h *hashEmbedder) Dimensions() int { return h.dims }
func (h *hashEmbedder) Name() string    { return "hash" }

func TestPipelineReindexDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store, err := vectordb.NewMemoryStore(&hashEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	p := NewPipeline(store, 100, 20)

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	item := schema.NewItem(strings.Repeat("renewal pricing talk ", 20), nil, ts,
		schema.EmailDetail{Subject: "Renewal", ThreadID: "t1", Date: ts})

	first, err := p.AddItems(ctx, []schema.ContextItem{item})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if store.Count() != first {
		t.Fatalf("store holds %d chunks after first add, want %d", store.Count(), first)
	}

	// Deterministic chunk ids make a re-add an upsert, not a duplicate.
	second, err := p.AddItems(ctx, []schema.ContextItem{item})
	if err != nil {
		t.Fatalf("second AddItems: %v", err)
	}
	if second != first {
		t.Errorf("second add reported %d chunks, want %d", second, first)
	}
	if store.Count() != first {
		t.Errorf("store holds %d chunks after re-add, want %d", store.Count(), first)
	}

	results, err := store.Search(ctx, "renewal pricing", 50, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != first {
		t.Errorf("search returned %d results after re-add, want %d", len(results), first)
	}
}
