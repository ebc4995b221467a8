package vectordb

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/vibecoding/mcp-server/internal/embeddings"
)

const collectionName = "sales_context"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore opens a persistent store under dataDir. The index is
// written to dataDir/vectors as compressed gob files and survives restarts.
func NewChromemStore(dataDir string, embedder embeddings.Embedder) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(dataDir, "vectors"), true)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: col, embedFunc: ef}, nil
}

// NewMemoryStore creates a store that lives only in memory.
func NewMemoryStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: col, embedFunc: ef}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, buildWhereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Similarity: r.Similarity,
		}
	}
	return searchResults, nil
}

func (s *ChromemStore) DeleteBySource(ctx context.Context, source string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	return s.collection.Delete(ctx, map[string]string{MetaSource: source}, nil)
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func buildWhereClause(filter *SearchFilter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.Source != "" {
		where[MetaSource] = filter.Source
	}
	if filter.Type != "" {
		where[MetaType] = filter.Type
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
