package chunker

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// DocumentStore is the slice of the vector store the pipeline writes to.
type DocumentStore interface {
	AddDocuments(ctx context.Context, docs []vectordb.Document) error
}

// Pipeline chunks context items and writes the chunks to a vector store.
type Pipeline struct {
	store   DocumentStore
	size    int
	overlap int
}

// NewPipeline builds a pipeline with the given chunking parameters. Zero
// values fall back to the defaults.
func NewPipeline(store DocumentStore, size, overlap int) *Pipeline {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Pipeline{store: store, size: size, overlap: overlap}
}

// AddItems chunks each item and stores the chunks. Items with empty content
// are skipped. Chunk ids are deterministic per item so re-indexing the same
// item overwrites its previous chunks instead of duplicating them.
func (p *Pipeline) AddItems(ctx context.Context, items []schema.ContextItem) (int, error) {
	var docs []vectordb.Document
	for _, item := range items {
		chunks := Split(item.Content, p.size, p.overlap)
		if len(chunks) == 0 {
			log.Printf("chunker: skipping empty %s item", item.Type)
			continue
		}

		key := itemKey(item)
		base := baseMetadata(item)
		total := strconv.Itoa(len(chunks))
		for i, chunk := range chunks {
			md := make(map[string]string, len(base)+2)
			for k, v := range base {
				md[k] = v
			}
			md[vectordb.MetaChunkIndex] = strconv.Itoa(i)
			md[vectordb.MetaTotalChunks] = total

			docs = append(docs, vectordb.Document{
				ID:       fmt.Sprintf("%s:%s:%d", item.Source, key, i),
				Content:  chunk,
				Metadata: md,
			})
		}
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if err := p.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(docs), nil
}

// itemKey returns a stable identifier for chunk ids. Items without any
// source-assigned id get a random one; their chunks are then append-only.
func itemKey(item schema.ContextItem) string {
	if id := sourceAssignedID(item); id != "" {
		return id
	}
	return uuid.NewString()
}

// baseMetadata flattens the item into the string metadata every chunk
// carries: the reserved keys plus the denormalized per-type fields, so
// search results stay readable without a second lookup.
func baseMetadata(item schema.ContextItem) map[string]string {
	md := map[string]string{
		vectordb.MetaSource: string(item.Source),
		vectordb.MetaType:   string(item.Type),
		vectordb.MetaItemID: sourceAssignedID(item),
	}
	if !item.Timestamp.IsZero() {
		md[vectordb.MetaTimestamp] = item.Timestamp.Format(time.RFC3339)
	}

	set := func(key, value string) {
		if value != "" {
			md[key] = value
		}
	}
	switch d := item.Detail.(type) {
	case schema.EmailDetail:
		set("subject", d.Subject)
		set("sender", d.Sender)
		if !d.Date.IsZero() {
			set("date", d.Date.Format(time.RFC3339))
		}
	case schema.MeetingDetail:
		set("title", d.Title)
		if !d.Date.IsZero() {
			set("date", d.Date.Format(time.RFC3339))
		}
	case schema.DocumentDetail:
		set("title", d.Title)
		if !d.LastEdited.IsZero() {
			set("last_edited", d.LastEdited.Format(time.RFC3339))
		}
	case schema.OpportunityDetail:
		set("name", d.Name)
	case schema.AccountDetail:
		set("name", d.Name)
	case schema.ContactDetail:
		set("name", d.Name)
	default:
		set("title", item.Title())
	}
	for k, v := range item.Metadata {
		// Reserved keys are set above from the item itself.
		if _, reserved := md[k]; reserved {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			md[k] = s
		}
	}
	return md
}

// sourceAssignedID returns the item's id as assigned by its source, or ""
// when the source record carried none.
func sourceAssignedID(item schema.ContextItem) string {
	if id := item.NaturalID(); id != "" {
		return id
	}
	switch d := item.Detail.(type) {
	case schema.OpportunityDetail:
		return d.OpportunityID
	case schema.AccountDetail:
		return d.AccountID
	case schema.ContactDetail:
		return d.ContactID
	}
	if id, ok := item.Metadata["id"].(string); ok {
		return id
	}
	return ""
}

// Describe reports the pipeline parameters, for startup logging.
func (p *Pipeline) Describe() string {
	return strings.Join([]string{
		"chunk_size=" + strconv.Itoa(p.size),
		"chunk_overlap=" + strconv.Itoa(p.overlap),
	}, " ")
}
