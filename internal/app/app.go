// Package app wires configuration, models, storage, and the pipeline
// into a runnable application.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lawbot0/lawbot/internal/config"
	"github.com/lawbot0/lawbot/internal/ingest"
	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/pipeline"
	"github.com/lawbot0/lawbot/internal/template"
)

// App holds the initialized application components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Genkit   *genkit.Genkit
	Store    *knowledge.Store
	Library  *template.Library
	Pipeline *pipeline.Pipeline
	Ingester *ingest.Ingester
}

// CheckReady verifies the knowledge store is reachable and populated.
// Chat surfaces call this before accepting input; an empty index is a
// startup failure, not a per-message one.
func (a *App) CheckReady(ctx context.Context) error {
	return a.Store.CheckReady(ctx)
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("closing knowledge store", "error", err)
		return err
	}
	return nil
}
