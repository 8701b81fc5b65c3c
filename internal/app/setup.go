package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lawbot0/lawbot/db"
	"github.com/lawbot0/lawbot/internal/config"
	"github.com/lawbot0/lawbot/internal/ingest"
	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/llm"
	"github.com/lawbot0/lawbot/internal/log"
	"github.com/lawbot0/lawbot/internal/normalize"
	"github.com/lawbot0/lawbot/internal/pipeline"
	"github.com/lawbot0/lawbot/internal/template"
)

// Setup creates and initializes the application. Call Close to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	a := &App{Config: cfg, Logger: logger}

	// On error, release whatever was already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := llm.Init(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder, err := llm.NewEmbedder(g, cfg.EmbedderModel, knowledge.VectorDimension)
	if err != nil {
		return nil, err
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = knowledge.NewStore(embedder, index, logger.With("component", "knowledge"))

	a.Library = template.New(cfg.TemplateDir, template.DefaultBindings(),
		logger.With("component", "template"))

	a.Ingester = ingest.New(a.Store, nil, logger.With("component", "ingest"))

	p, err := buildPipeline(g, cfg, a, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = p

	logger.Debug("application initialized", "config", cfg)
	return a, nil
}

// openIndex connects the configured vector backend. The pgvector path
// runs schema migrations first; Qdrant creates its collection on demand.
func openIndex(ctx context.Context, cfg *config.Config) (knowledge.Index, error) {
	switch cfg.VectorBackend {
	case config.BackendPgvector:
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return knowledge.NewPgvectorIndex(ctx, cfg.PostgresConnectionString())
	case config.BackendQdrant:
		return knowledge.NewQdrantIndex(ctx, knowledge.QdrantConfig{
			URL:        cfg.QdrantURL,
			Collection: cfg.QdrantCollection,
			APIKey:     cfg.QdrantAPIKey,
		})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidVectorBackend, cfg.VectorBackend)
	}
}

func buildPipeline(g *genkit.Genkit, cfg *config.Config, a *App, logger *slog.Logger) (*pipeline.Pipeline, error) {
	rewriteModel, err := llm.NewCompleter(g, llm.CompleterConfig{
		ModelName:   cfg.RewriteModel,
		Temperature: cfg.Temperature,
		Logger:      logger.With("component", "rewrite"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating rewrite completer: %w", err)
	}

	answerModel, err := llm.NewCompleter(g, llm.CompleterConfig{
		ModelName:   cfg.AnswerModel,
		Temperature: cfg.Temperature,
		Logger:      logger.With("component", "answer"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating answer completer: %w", err)
	}

	translator := llm.NewTranslator(g, cfg.RewriteModel, logger.With("component", "translate"))
	normalizer := normalize.New(normalize.NewLinguaDetector(), translator, 0,
		logger.With("component", "normalize")).WithLanguage(cfg.Language)

	return pipeline.New(pipeline.Config{
		Normalizer:  normalizer,
		Matcher:     a.Library,
		Rewriter:    pipeline.NewRewriter(rewriteModel, logger.With("component", "rewrite")),
		Retriever:   a.Store,
		Synthesizer: pipeline.NewSynthesizer(answerModel, logger.With("component", "answer")),
		TopK:        cfg.TopK,
		Logger:      logger.With("component", "pipeline"),
	})
}
