// Package llm provides the Gemini-backed model capabilities used across
// the pipeline: chat completion, translation, and text embedding. All of
// them share one Genkit instance initialized at startup.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// Init initializes Genkit with the Google AI plugin. The GEMINI_API_KEY
// environment variable must be set before calling.
func Init(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("failed to initialize genkit")
	}
	return g, nil
}
