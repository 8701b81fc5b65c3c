// Package ingest loads source documents from a directory, chunks them,
// and indexes them into the knowledge store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lawbot0/lawbot/internal/knowledge"
)

// embedBatchSize bounds one embedding request.
const embedBatchSize = 64

// Ingester walks a data directory and feeds its documents into a
// knowledge store.
type Ingester struct {
	store   *knowledge.Store
	chunker *knowledge.Chunker
	logger  *slog.Logger
}

// New creates an Ingester. A nil chunker gets the default chunk size and
// overlap.
func New(store *knowledge.Store, chunker *knowledge.Chunker, logger *slog.Logger) *Ingester {
	if chunker == nil {
		chunker = knowledge.NewChunker(knowledge.DefaultChunkSize, knowledge.DefaultChunkOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: store, chunker: chunker, logger: logger}
}

// Run ingests every .txt and .md file under dataDir and returns the
// number of chunks indexed. A populated index is left alone unless force
// is set, so repeated startups don't re-embed the corpus.
func (i *Ingester) Run(ctx context.Context, dataDir string, force bool) (int, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return 0, fmt.Errorf("data directory %q: %w", dataDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("data directory %q is not a directory", dataDir)
	}

	if !force {
		count, err := i.store.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("checking index: %w", err)
		}
		if count > 0 {
			i.logger.Info("index already populated, skipping ingestion",
				"chunks", count, "hint", "use --force to re-ingest")
			return 0, nil
		}
	}

	var batch []knowledge.Chunk
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.store.Add(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	walkErr := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingestible(path) {
			return nil
		}

		chunks, err := i.chunkFile(dataDir, path)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			batch = append(batch, c)
			if len(batch) >= embedBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return total, fmt.Errorf("ingesting %q: %w", dataDir, walkErr)
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("ingesting %q: %w", dataDir, err)
	}

	i.logger.Info("ingestion completed", "dir", dataDir, "chunks", total)
	return total, nil
}

func (i *Ingester) chunkFile(root, path string) ([]knowledge.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	source, err := filepath.Rel(root, path)
	if err != nil {
		source = filepath.Base(path)
	}

	pieces := i.chunker.Split(string(data))
	chunks := make([]knowledge.Chunk, 0, len(pieces))
	for n, text := range pieces {
		chunks = append(chunks, knowledge.Chunk{
			ID:      fmt.Sprintf("%s#%d", source, n),
			Text:    text,
			Source:  source,
			Section: n,
		})
	}

	i.logger.Debug("chunked document", "source", source, "chunks", len(chunks))
	return chunks, nil
}

func ingestible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
