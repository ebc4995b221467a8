// Package retrieval ties aggregation and the vector index together. Queries
// go to the semantic index when possible and fall back to live aggregation;
// aggregated results are always written through to the index.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// ContextProvider aggregates fresh context from the live sources.
type ContextProvider interface {
	GetContext(ctx context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error)
}

// Indexer chunks items into the vector store.
type Indexer interface {
	AddItems(ctx context.Context, items []schema.ContextItem) (int, error)
}

// Searcher is the query side of the vector store.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error)
	Count() int
}

// BootstrapParams control the initial index fill.
type BootstrapParams struct {
	DaysBack int
	Limit    int
}

// DefaultBootstrapParams matches a month of history.
var DefaultBootstrapParams = BootstrapParams{DaysBack: 30, Limit: 100}

// Orchestrator routes context requests between the vector index and live
// aggregation.
type Orchestrator struct {
	provider  ContextProvider
	indexer   Indexer
	store     Searcher
	bootstrap BootstrapParams

	mu          sync.Mutex
	initialized bool
}

// New creates an orchestrator. params with zero values fall back to the
// defaults.
func New(provider ContextProvider, indexer Indexer, store Searcher, params BootstrapParams) *Orchestrator {
	if params.DaysBack <= 0 {
		params.DaysBack = DefaultBootstrapParams.DaysBack
	}
	if params.Limit <= 0 {
		params.Limit = DefaultBootstrapParams.Limit
	}
	return &Orchestrator{provider: provider, indexer: indexer, store: store, bootstrap: params}
}

// Bootstrap fills the index from a wide aggregation pass. It runs at most
// once per process; later calls return immediately.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}

	log.Printf("retrieval: bootstrapping index (%d days, limit %d)", o.bootstrap.DaysBack, o.bootstrap.Limit)
	resp, err := o.provider.GetContext(ctx, &schema.ContextRequest{
		TimeRange: map[string]any{"days_back": o.bootstrap.DaysBack},
		Limit:     o.bootstrap.Limit,
	})
	if err != nil {
		return fmt.Errorf("bootstrap aggregation: %w", err)
	}

	n, err := o.indexer.AddItems(ctx, resp.ContextItems)
	if err != nil {
		return fmt.Errorf("bootstrap indexing: %w", err)
	}
	log.Printf("retrieval: bootstrap indexed %d chunks from %d items", n, len(resp.ContextItems))
	o.initialized = true
	return nil
}

// ensureInitialized lazily bootstraps on first use. A bootstrap failure is
// logged and the request proceeds against whatever the index holds.
func (o *Orchestrator) ensureInitialized(ctx context.Context) {
	if err := o.Bootstrap(ctx); err != nil {
		log.Printf("retrieval: bootstrap failed: %v", err)
	}
}

// GetContext serves a context request. Requests without a query always
// aggregate live and write through to the index. Requests with a query are
// answered from the index; an empty or failed search falls back to live
// aggregation.
func (o *Orchestrator) GetContext(ctx context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error) {
	o.ensureInitialized(ctx)

	if req.Query == "" {
		return o.aggregateAndIndex(ctx, req)
	}

	results, err := o.store.Search(ctx, req.Query, req.EffectiveLimit(), buildFilter(req))
	if err != nil {
		log.Printf("retrieval: vector search failed, falling back to aggregation: %v", err)
		return o.aggregateAndIndex(ctx, req)
	}
	if len(results) == 0 {
		return o.aggregateAndIndex(ctx, req)
	}

	items := itemsFromResults(results)

	if req.IncludeFresh() {
		fresh, err := o.aggregateAndIndex(ctx, req)
		if err != nil {
			log.Printf("retrieval: fresh aggregation failed: %v", err)
		} else {
			items = mergeItems(items, fresh.ContextItems, req.EffectiveLimit())
		}
	}

	return &schema.ContextResponse{
		Source:       schema.ResponseSourceVector,
		ContextItems: items,
		Query:        req.Query,
		Timestamp:    time.Now(),
	}, nil
}

// aggregateAndIndex runs a live aggregation and writes the results through
// to the index. Indexing failures are logged, never surfaced.
func (o *Orchestrator) aggregateAndIndex(ctx context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error) {
	resp, err := o.provider.GetContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.ContextItems) > 0 {
		if _, err := o.indexer.AddItems(ctx, resp.ContextItems); err != nil {
			log.Printf("retrieval: write-through indexing failed: %v", err)
		}
	}
	return resp, nil
}

// buildFilter narrows the vector search when the request names exactly one
// source. Multi-source requests search the whole index.
func buildFilter(req *schema.ContextRequest) *vectordb.SearchFilter {
	if len(req.Sources) != 1 {
		return nil
	}
	return &vectordb.SearchFilter{Source: req.Sources[0]}
}

// itemsFromResults reconstructs context items from index chunks. Only the
// base fields survive the round trip; the similarity score rides in the
// metadata.
func itemsFromResults(results []vectordb.SearchResult) []schema.ContextItem {
	items := make([]schema.ContextItem, 0, len(results))
	for _, r := range results {
		md := map[string]any{"vector_score": float64(r.Similarity)}
		for k, v := range r.Document.Metadata {
			switch k {
			case vectordb.MetaType, vectordb.MetaChunkIndex, vectordb.MetaTotalChunks:
				// Carried on the item itself or chunk bookkeeping.
			default:
				md[k] = v
			}
		}

		ts := time.Now()
		if raw := r.Document.Metadata[vectordb.MetaTimestamp]; raw != "" {
			if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
				ts = parsed
			}
		}

		items = append(items, schema.GenericItem(
			schema.ItemType(r.Document.Metadata[vectordb.MetaType]),
			schema.SourceID(r.Document.Metadata[vectordb.MetaSource]),
			r.Document.Content,
			md,
			ts,
		))
	}
	return items
}

// mergeItems combines indexed and fresh items, keeping index results first.
// Deduplication is first-seen-wins on the source-assigned id, across the
// indexed results and within the fresh batch itself. CRM items have no
// merge id and are always kept.
func mergeItems(indexed, fresh []schema.ContextItem, limit int) []schema.ContextItem {
	seen := make(map[string]bool, len(indexed))
	for _, item := range indexed {
		if id := mergeID(item); id != "" {
			seen[id] = true
		}
	}

	merged := indexed
	for _, item := range fresh {
		id := mergeID(item)
		if id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		merged = append(merged, item)
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// mergeID returns the deduplication key for a merged item. Indexed items
// carry their source-assigned id in metadata; fresh items in the payload.
func mergeID(item schema.ContextItem) string {
	if id := item.NaturalID(); id != "" {
		return id
	}
	if id, ok := item.Metadata[vectordb.MetaItemID].(string); ok && id != "" {
		// CRM record ids do not participate in the merge.
		switch item.Type {
		case schema.TypeOpportunity, schema.TypeAccount, schema.TypeContact:
			return ""
		}
		return id
	}
	return ""
}

// Stats reports the current index size, for the health endpoint.
func (o *Orchestrator) Stats() map[string]any {
	return map[string]any{
		"indexed_chunks": o.store.Count(),
		"bootstrap_days": o.bootstrap.DaysBack,
		"bootstrap_max":  o.bootstrap.Limit,
	}
}
