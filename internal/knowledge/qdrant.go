package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection settings for a Qdrant-backed index.
type QdrantConfig struct {
	// URL is the server address (e.g. "https://example.qdrant.io:6334").
	URL string

	// Collection is the collection holding the passages.
	Collection string

	// APIKey is an optional authentication key.
	APIKey string
}

// QdrantIndex implements Index against a Qdrant collection. The
// collection is created on first use with cosine distance, matching the
// pgvector backend's metric.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex connects to Qdrant and ensures the collection exists.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	rawURL := cfg.URL
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant url: %w", err)
	}

	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, collection: cfg.Collection}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", q.collection, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", q.collection, err)
	}
	return nil
}

// Upsert implements Index. Chunk IDs are mapped to deterministic UUIDs
// so re-ingestion replaces points in place.
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []EmbeddedChunk) error {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.ID)).String()),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content": c.Text,
				"source":  c.Source,
				"section": int64(c.Section),
			}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Search implements Index.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]Passage, error) {
	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	passages := make([]Passage, 0, len(points))
	for _, point := range points {
		p := Passage{Score: point.Score}
		for key, value := range point.Payload {
			switch key {
			case "content":
				p.Text = value.GetStringValue()
			case "source":
				p.Source = value.GetStringValue()
			}
		}
		passages = append(passages, p)
	}
	return passages, nil
}

// Count implements Index.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(count), nil
}

// Close implements Index.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// Compile-time interface checks for both backends.
var (
	_ Index = (*PgvectorIndex)(nil)
	_ Index = (*QdrantIndex)(nil)
)
