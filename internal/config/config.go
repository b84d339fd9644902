// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GUIDANCE_* runtime overrides, DATABASE_URL)
//  2. Config file (./config.yaml or ~/.guidance/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: provider selection, model, dimension, call timeout
//   - Chunking: window size and overlap for guideline passages
//   - Retrieval: candidate pool size, rerank depth, fusion weights
//   - Storage: PostgreSQL connection (see storage.go)
//
// Validation lives in validation.go with sentinel errors so callers can use
// errors.Is(). A misconfigured chunk window is fatal at startup, never a
// per-request failure.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Embedding provider identifiers used in Config.EmbedProvider.
const (
	// ProviderLocal is the deterministic hash embedder. Always available,
	// needs no network or credentials.
	ProviderLocal = "local"

	// ProviderOpenAI uses the OpenAI embeddings API, falling back to the
	// local embedder on any failure.
	ProviderOpenAI = "openai"
)

// Default chunk window geometry. A chunk covers at most DefaultChunkMaxChars
// runes and shares DefaultChunkOverlap runes with its predecessor.
const (
	DefaultChunkMaxChars = 700
	DefaultChunkOverlap  = 120
)

// DefaultEmbedDimension matches text-embedding-3-small so the local and
// OpenAI strategies are interchangeable within one index.
const DefaultEmbedDimension = 1536

// Config stores application configuration.
type Config struct {
	// Embedding
	EmbedProvider  string        `mapstructure:"embed_provider"`
	EmbedModel     string        `mapstructure:"embed_model"`
	EmbedDimension int           `mapstructure:"embed_dimension"`
	EmbedTimeout   time.Duration `mapstructure:"embed_timeout"`
	OpenAIAPIKey   string        `mapstructure:"openai_api_key"`

	// Chunking
	ChunkMaxChars int `mapstructure:"chunk_max_chars"`
	ChunkOverlap  int `mapstructure:"chunk_overlap"`

	// Retrieval and reranking
	RetrieveCandidates int     `mapstructure:"retrieve_candidates"`
	RerankTopK         int     `mapstructure:"rerank_top_k"`
	RerankWeightSim    float64 `mapstructure:"rerank_weight_sim"`
	RerankWeightBM25   float64 `mapstructure:"rerank_weight_bm25"`
	RerankWeightFuzz   float64 `mapstructure:"rerank_weight_fuzz"`
	BM25Enabled        bool    `mapstructure:"bm25_enabled"`
	FuzzyEnabled       bool    `mapstructure:"fuzzy_enabled"`

	// Answer synthesis
	AnswerChunks       int `mapstructure:"answer_chunks"`
	AnswerPreviewChars int `mapstructure:"answer_preview_chars"`
	QueryPreviewChars  int `mapstructure:"query_preview_chars"`

	// HTTP server
	ServeAddr string `mapstructure:"serve_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// PostgreSQL (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".guidance"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults + env carry the service.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration populated with default values only.
// Used by tests and by components that need a baseline to override.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshal of static defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embed_provider", ProviderLocal)
	v.SetDefault("embed_model", "text-embedding-3-small")
	v.SetDefault("embed_dimension", DefaultEmbedDimension)
	v.SetDefault("embed_timeout", 10*time.Second)

	v.SetDefault("chunk_max_chars", DefaultChunkMaxChars)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("retrieve_candidates", 30)
	v.SetDefault("rerank_top_k", 8)
	v.SetDefault("rerank_weight_sim", 0.55)
	v.SetDefault("rerank_weight_bm25", 0.30)
	v.SetDefault("rerank_weight_fuzz", 0.15)
	v.SetDefault("bm25_enabled", true)
	v.SetDefault("fuzzy_enabled", true)

	v.SetDefault("answer_chunks", 3)
	v.SetDefault("answer_preview_chars", 450)
	v.SetDefault("query_preview_chars", 500)

	v.SetDefault("serve_addr", "127.0.0.1:8087")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "guidance")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_dbname", "guidance")
	v.SetDefault("postgres_sslmode", "disable")
}

func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("GUIDANCE")
	v.AutomaticEnv()

	// Explicit bindings keep the env surface documented in one place.
	for _, key := range []string{
		"embed_provider", "embed_model", "embed_dimension", "embed_timeout",
		"openai_api_key",
		"chunk_max_chars", "chunk_overlap",
		"retrieve_candidates", "rerank_top_k",
		"rerank_weight_sim", "rerank_weight_bm25", "rerank_weight_fuzz",
		"bm25_enabled", "fuzzy_enabled",
		"answer_chunks", "answer_preview_chars", "query_preview_chars",
		"serve_addr", "log_level", "log_json",
		"postgres_host", "postgres_port", "postgres_user",
		"postgres_password", "postgres_dbname", "postgres_sslmode",
	} {
		_ = v.BindEnv(key)
	}

	// OPENAI_API_KEY is the conventional unprefixed name; accept it too.
	_ = v.BindEnv("openai_api_key", "GUIDANCE_OPENAI_API_KEY", "OPENAI_API_KEY")
}

// SlogLevel converts the configured log level string to a slog.Level.
// Unknown values default to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
