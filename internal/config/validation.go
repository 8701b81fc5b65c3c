package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.AnswerModel == "" {
		return fmt.Errorf("%w: answer_model cannot be empty", ErrInvalidModelName)
	}
	if c.RewriteModel == "" {
		return fmt.Errorf("%w: rewrite_model cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Gemini accepts temperatures from 0.0 (deterministic) to 2.0.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.TopK <= 0 || c.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.TopK)
	}

	switch c.VectorBackend {
	case BackendPgvector:
		if err := c.validatePostgres(); err != nil {
			return err
		}
	case BackendQdrant:
		if c.QdrantURL == "" {
			return fmt.Errorf("%w: qdrant_url cannot be empty", ErrInvalidQdrantURL)
		}
		if _, err := url.Parse(c.QdrantURL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQdrantURL, err)
		}
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidVectorBackend, c.VectorBackend, BackendPgvector, BackendQdrant)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "lawbot_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	return nil
}
