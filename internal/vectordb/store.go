// Package vectordb stores context chunks as embedded documents and serves
// semantic queries over them, backed by chromem-go with on-disk persistence.
package vectordb

import "context"

// VectorStore stores and searches embedded context documents.
type VectorStore interface {
	// AddDocuments adds or updates documents in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text.
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)

	// DeleteBySource removes all documents from the given source.
	DeleteBySource(ctx context.Context, source string) error

	// Count returns the number of documents in the store.
	Count() int
}
