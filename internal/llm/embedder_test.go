package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"
)

// captureEmbedder implements ai.Embedder and records the last request.
type captureEmbedder struct {
	lastReq *ai.EmbedRequest
	width   int
}

func (c *captureEmbedder) Name() string { return "capture-embedder" }

func (c *captureEmbedder) Register(_ api.Registry) {}

func (c *captureEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	c.lastReq = req
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: make([]float32, c.width)}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func TestEmbedRequestsConfiguredDimensionality(t *testing.T) {
	inner := &captureEmbedder{width: 768}
	e := &Embedder{embedder: inner, model: "gemini-embedding-001", dimension: 768}

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}

	cfg, ok := inner.lastReq.Options.(*genai.EmbedContentConfig)
	if !ok {
		t.Fatalf("request options are %T, want *genai.EmbedContentConfig", inner.lastReq.Options)
	}
	if cfg.OutputDimensionality == nil {
		t.Fatal("OutputDimensionality not set on embed request")
	}
	if *cfg.OutputDimensionality != 768 {
		t.Errorf("OutputDimensionality = %d, want 768", *cfg.OutputDimensionality)
	}
}

func TestEmbedRejectsMismatchedVectorWidth(t *testing.T) {
	// A model that ignores the truncation request must not hand
	// oversized vectors to the index.
	inner := &captureEmbedder{width: 3072}
	e := &Embedder{embedder: inner, model: "gemini-embedding-001", dimension: 768}

	_, err := e.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("Embed accepted a 3072-wide vector for a 768-wide schema")
	}
	if !strings.Contains(err.Error(), "3072") || !strings.Contains(err.Error(), "768") {
		t.Errorf("error %q does not name both widths", err)
	}
}

func TestEmbedEmptyInputSkipsModelCall(t *testing.T) {
	inner := &captureEmbedder{width: 768}
	e := &Embedder{embedder: inner, model: "gemini-embedding-001", dimension: 768}

	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vectors != nil {
		t.Errorf("got %v, want nil", vectors)
	}
	if inner.lastReq != nil {
		t.Error("empty input reached the model")
	}
}
