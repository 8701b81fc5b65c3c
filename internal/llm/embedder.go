package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"
)

// Embedder wraps a Genkit embedder behind the knowledge.Embedder
// interface. One instance serves both ingestion and query embedding so
// both sides use the same model and vector width.
type Embedder struct {
	embedder  ai.Embedder
	model     string
	dimension int
}

// NewEmbedder resolves the Google AI embedder for model, e.g.
// "gemini-embedding-001". dimension is the vector width the index
// schema declares; the model is asked to truncate its output to it
// (Matryoshka Representation Learning), since gemini-embedding-001
// produces 3072-dimensional vectors otherwise.
func NewEmbedder(g *genkit.Genkit, model string, dimension int) (*Embedder, error) {
	e := googlegenai.GoogleAIEmbedder(g, model)
	if e == nil {
		return nil, fmt.Errorf("embedder model %q not found", model)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	return &Embedder{embedder: e, model: model, dimension: dimension}, nil
}

// Embed returns one vector per input text, in order. Every vector has
// exactly the configured dimension.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := int32(e.dimension)
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", e.model, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedder returned %d-dimensional vector, want %d",
				len(emb.Embedding), e.dimension)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}
