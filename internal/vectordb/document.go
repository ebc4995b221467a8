package vectordb

// Well-known metadata keys carried on every stored chunk.
const (
	MetaSource      = "source"
	MetaType        = "type"
	MetaItemID      = "id"
	MetaTimestamp   = "timestamp"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
)

// Document is one embedded chunk of a context item. Metadata is flat
// string-to-string, the shape chromem filters on.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchResult pairs a document with its similarity score in [0, 1].
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter narrows a search by chunk metadata. Empty fields are
// ignored.
type SearchFilter struct {
	Source string
	Type   string
}
