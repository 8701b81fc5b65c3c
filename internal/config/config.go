// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lawbot/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive fields (database password, Qdrant API key) are masked in
// MarshalJSON so a dumped config never leaks secrets. GEMINI_API_KEY is
// read directly by Genkit, not via Viper; Validate only checks presence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidVectorBackend indicates an unknown vector backend name.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidQdrantURL indicates the Qdrant URL is invalid.
	ErrInvalidQdrantURL = errors.New("invalid Qdrant URL")
)

// Vector index backend identifiers used in Config.VectorBackend.
const (
	BackendPgvector = "pgvector"
	BackendQdrant   = "qdrant"
)

const (
	// DefaultEmbedderModel truncates to 768 dimensions via Matryoshka
	// representation, matching the pgvector schema and the Qdrant
	// collection; see knowledge.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultAnswerModel generates the final answers.
	DefaultAnswerModel = "googleai/gemini-2.5-flash"

	// DefaultRewriteModel resolves follow-up questions; a small fast
	// model is enough for reformulation.
	DefaultRewriteModel = "googleai/gemini-2.5-flash-lite"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding a
// secret field, update MarshalJSON.
type Config struct {
	// Model configuration
	AnswerModel   string  `mapstructure:"answer_model" json:"answer_model"`
	RewriteModel  string  `mapstructure:"rewrite_model" json:"rewrite_model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Retrieval configuration
	TopK          int    `mapstructure:"top_k" json:"top_k"`
	VectorBackend string `mapstructure:"vector_backend" json:"vector_backend"`

	// Canonical query language (ISO 639-1); non-matching input is
	// translated before retrieval.
	Language string `mapstructure:"language" json:"language"`

	// Content directories
	TemplateDir string `mapstructure:"template_dir" json:"template_dir"`
	DataDir     string `mapstructure:"data_dir" json:"data_dir"`

	// PostgreSQL (pgvector backend)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Qdrant (qdrant backend)
	QdrantURL        string `mapstructure:"qdrant_url" json:"qdrant_url"`
	QdrantCollection string `mapstructure:"qdrant_collection" json:"qdrant_collection"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key" json:"qdrant_api_key"` // SENSITIVE: masked in MarshalJSON

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lawbot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("answer_model", DefaultAnswerModel)
	viper.SetDefault("rewrite_model", DefaultRewriteModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.15)

	viper.SetDefault("top_k", 3)
	viper.SetDefault("vector_backend", BackendPgvector)
	viper.SetDefault("language", "en")

	viper.SetDefault("template_dir", "legal_templates")
	viper.SetDefault("data_dir", "data")

	// PostgreSQL defaults matching docker-compose.yml
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "lawbot")
	viper.SetDefault("postgres_password", "lawbot_dev_password")
	viper.SetDefault("postgres_db_name", "lawbot")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("qdrant_url", "http://localhost:6334")
	viper.SetDefault("qdrant_collection", "lawbot_passages")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper;
// Validate checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("answer_model", "LAWBOT_ANSWER_MODEL")
	mustBind("rewrite_model", "LAWBOT_REWRITE_MODEL")
	mustBind("embedder_model", "LAWBOT_EMBEDDER_MODEL")
	mustBind("temperature", "LAWBOT_TEMPERATURE")
	mustBind("top_k", "LAWBOT_TOP_K")
	mustBind("vector_backend", "LAWBOT_VECTOR_BACKEND")
	mustBind("language", "LAWBOT_LANGUAGE")
	mustBind("template_dir", "LAWBOT_TEMPLATE_DIR")
	mustBind("data_dir", "LAWBOT_DATA_DIR")
	mustBind("qdrant_url", "QDRANT_URL")
	mustBind("qdrant_api_key", "QDRANT_API_KEY")
	mustBind("qdrant_collection", "QDRANT_COLLECTION")
	mustBind("log_level", "LAWBOT_LOG_LEVEL")
	mustBind("log_json", "LAWBOT_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// MarshalJSON masks sensitive fields.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = maskedValue
	}
	if masked.QdrantAPIKey != "" {
		masked.QdrantAPIKey = maskedValue
	}
	return json.Marshal(masked)
}

// String renders the config with secrets masked.
func (c *Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
