package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/lawbot0/lawbot/internal/session"
)

// completeTimeout bounds a single generation round trip.
const completeTimeout = 60 * time.Second

// CompleterConfig configures a Completer.
type CompleterConfig struct {
	// ModelName is the provider-qualified model, e.g. "googleai/gemini-2.5-flash".
	ModelName   string
	Temperature float32

	// RateLimiter throttles outgoing requests. Nil installs a default of
	// 5 req/s with a burst of 10.
	RateLimiter *rate.Limiter

	Logger *slog.Logger
}

// Completer generates chat completions with one fixed model. Separate
// instances back the rewrite and answer stages so each can run a
// different model.
type Completer struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewCompleter creates a Completer.
func NewCompleter(g *genkit.Genkit, cfg CompleterConfig) (*Completer, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(5, 10)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{
		g:           g,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		limiter:     rl,
		logger:      logger,
	}, nil
}

// Complete generates one assistant reply. system sets the system prompt,
// history carries prior turns in order, and prompt is the new user
// message.
func (c *Completer) Complete(ctx context.Context, system string, history []session.Message, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(prompt)))

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{"temperature": c.temperature}),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	start := time.Now()
	response, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", c.modelName, err)
	}

	c.logger.Debug("completion generated",
		"model", c.modelName,
		"history_len", len(history),
		"duration", time.Since(start))
	return response.Text(), nil
}
