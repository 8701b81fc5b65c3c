package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// VectorDimension is the embedding width the passages schema is declared
// with. The embedder must be configured to produce vectors of this size.
const VectorDimension = 768

// PgvectorIndex implements Index on PostgreSQL with the pgvector
// extension. Relevance uses cosine distance, the default metric the
// index's HNSW index is built with.
type PgvectorIndex struct {
	pool *pgxpool.Pool
}

// NewPgvectorIndex connects to PostgreSQL and verifies the connection.
// The caller is expected to have run migrations first.
func NewPgvectorIndex(ctx context.Context, connString string) (*PgvectorIndex, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PgvectorIndex{pool: pool}, nil
}

// Upsert implements Index using ON CONFLICT DO UPDATE keyed by chunk ID,
// so re-ingesting a document replaces its chunks in place.
func (p *PgvectorIndex) Upsert(ctx context.Context, chunks []EmbeddedChunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		if len(c.Vector) != VectorDimension {
			return fmt.Errorf("chunk %q has %d-dimensional vector, schema requires %d",
				c.ID, len(c.Vector), VectorDimension)
		}
		batch.Queue(`
			INSERT INTO passages (id, source, section, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET source = EXCLUDED.source,
			    section = EXCLUDED.section,
			    content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding`,
			c.ID, c.Source, c.Section, c.Text, pgvector.NewVector(c.Vector),
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunks[i].ID, err)
		}
	}
	return nil
}

// Search implements Index. Results come back in increasing cosine
// distance, which is decreasing relevance.
func (p *PgvectorIndex) Search(ctx context.Context, vector []float32, k int) ([]Passage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT content, source, 1 - (embedding <=> $1) AS similarity
		FROM passages
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		var similarity float64
		if err := rows.Scan(&p.Text, &p.Source, &similarity); err != nil {
			return nil, fmt.Errorf("scanning passage row: %w", err)
		}
		p.Score = float32(similarity)
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passage rows: %w", err)
	}
	return passages, nil
}

// Count implements Index.
func (p *PgvectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM passages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}

// Close implements Index.
func (p *PgvectorIndex) Close() error {
	p.pool.Close()
	return nil
}
