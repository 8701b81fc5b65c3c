// Package knowledge stores document chunks in a vector index and retrieves
// the passages most relevant to a query.
//
// The embedding model must be identical at ingestion time and query time;
// a mismatch silently degrades retrieval quality instead of failing. Both
// sides therefore share one Embedder instance wired at startup.
package knowledge

import "context"

// Chunk is a piece of a source document headed for the index.
type Chunk struct {
	ID      string // stable identifier, derived from source + position
	Text    string
	Source  string // identifier of the originating document
	Section int    // chunk position within the source document
}

// EmbeddedChunk is a Chunk paired with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// Passage is a retrieved chunk, transient to one pipeline invocation.
type Passage struct {
	Text   string
	Source string
	// Rank is the 1-based relevance position within one retrieval.
	Rank int
	// Score is the backend's similarity score, higher is more relevant.
	Score float32
}

// Embedder produces embedding vectors for a batch of texts.
// Implementations must return one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a vector index backend. Implementations are safe for
// concurrent reads across sessions.
type Index interface {
	// Upsert inserts or replaces chunks by ID.
	Upsert(ctx context.Context, chunks []EmbeddedChunk) error

	// Search returns up to k passages ordered by decreasing relevance.
	// An empty result is not an error.
	Search(ctx context.Context, vector []float32, k int) ([]Passage, error)

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
