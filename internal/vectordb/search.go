package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text for the MCP
// tool surface.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity))

		if src := r.Document.Metadata[MetaSource]; src != "" {
			sb.WriteString(fmt.Sprintf("Source: %s\n", src))
		}
		if typ := r.Document.Metadata[MetaType]; typ != "" {
			sb.WriteString(fmt.Sprintf("Type: %s\n", typ))
		}
		if ts := r.Document.Metadata[MetaTimestamp]; ts != "" {
			sb.WriteString(fmt.Sprintf("Timestamp: %s\n", ts))
		}

		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
