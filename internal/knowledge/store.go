package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// searchTimeout bounds one query-time embed + search round trip.
const searchTimeout = 10 * time.Second

// ErrEmptyIndex is returned by CheckReady when the index holds no chunks.
// An empty index at startup is a hard failure: answering without a
// knowledge base would produce ungrounded output.
var ErrEmptyIndex = errors.New("vector index is empty, run ingestion first")

// Store couples an Embedder with an Index so that callers deal only in
// text. The same Store (and the same embedding model) serves both
// ingestion and query-time retrieval.
//
// Store is safe for concurrent use.
type Store struct {
	embedder Embedder
	index    Index
	logger   *slog.Logger
}

// NewStore creates a Store.
func NewStore(embedder Embedder, index Index, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{embedder: embedder, index: index, logger: logger}
}

// Add embeds chunks and upserts them into the index.
func (s *Store) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = EmbeddedChunk{Chunk: c, Vector: vectors[i]}
	}

	if err := s.index.Upsert(ctx, embedded); err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}

	s.logger.Debug("added chunks", "count", len(chunks))
	return nil
}

// Search embeds query and returns up to k passages ranked by decreasing
// relevance. Rank is assigned here so callers can trust it regardless of
// backend.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timed out: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedder returned no vector for query")
	}

	passages, err := s.index.Search(ctx, vectors[0], k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timed out: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(passages) > k {
		passages = passages[:k]
	}
	for i := range passages {
		passages[i].Rank = i + 1
	}

	s.logger.Debug("retrieved passages", "query_len", len(query), "k", k, "found", len(passages))
	return passages, nil
}

// CheckReady verifies the index is reachable and non-empty.
func (s *Store) CheckReady(ctx context.Context) error {
	count, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting indexed chunks: %w", err)
	}
	if count == 0 {
		return ErrEmptyIndex
	}
	return nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// Close releases the underlying index.
func (s *Store) Close() error {
	return s.index.Close()
}
