// Package chunker splits context items into overlapping text chunks and
// feeds them into the vector store.
package chunker

import "unicode"

// Defaults applied when the pipeline is built with zero values.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Split cuts text into chunks of at most size characters with the given
// overlap between consecutive chunks. It prefers to break at whitespace so
// words stay intact. Text shorter than size comes back as a single chunk.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 10
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; ; {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := breakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		// The next chunk continues from the actual cut, not from a fixed
		// stride, so a word-boundary cut never leaves a gap in coverage.
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// breakPoint walks back from end looking for whitespace to break on. It
// gives up after a quarter of the chunk and cuts mid-word.
func breakPoint(runes []rune, start, end int) int {
	limit := end - (end-start)/4
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
