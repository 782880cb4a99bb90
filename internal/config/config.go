// Package config provides configuration loading and structs for Trendlens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings. They are typically
// provided through a .env file so secrets stay out of config.yaml.
const (
	EnvPostgresURL    = "TRENDLENS_POSTGRES_URL"
	EnvOpenAlexMailto = "TRENDLENS_OPENALEX_MAILTO"
	EnvOllamaURL      = "TRENDLENS_OLLAMA_URL"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	OpenAlex  OpenAlexConfig  `yaml:"openalex"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// RequestTimeoutSeconds bounds a single request in the router middleware.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	// Type is one of "sqlite" (default), "memory" or "postgres".
	Type         string `yaml:"type"`
	Collection   string `yaml:"collection"`
	DatabasePath string `yaml:"database_path"`
	PostgresURL  string `yaml:"postgres_url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is one of "onnx" (default), "ollama" or "mock".
	Provider    string `yaml:"provider"`
	ModelPath string `yaml:"model_path"`
	// VocabPath defaults to vocab.txt next to the model.
	VocabPath   string `yaml:"vocab_path"`
	OutputName  string `yaml:"output_name"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
	// FallbackToMock uses mock embeddings when the ONNX model cannot be
	// loaded. Collections record the model they were built with, so a server
	// refuses to answer from a collection embedded by a different model.
	FallbackToMock bool `yaml:"fallback_to_mock"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	// TopK is the number of candidates retrieved from the index per query.
	TopK int `yaml:"top_k"`
	// MaxClusters caps the number of sub-topics per query.
	MaxClusters int `yaml:"max_clusters"`
	// Seed makes clustering reproducible. Defaults to 42 when absent; 0 is
	// a valid seed.
	Seed int64 `yaml:"seed"`
}

// IngestConfig holds offline ingestion settings.
type IngestConfig struct {
	PatentsPath string `yaml:"patents_path"`
	PapersPath  string `yaml:"papers_path"`
	// RowLimit caps rows read per source. Defaults to 10000 when absent;
	// 0 means no limit.
	RowLimit  int `yaml:"row_limit"`
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"`
}

// OpenAlexConfig holds settings for the paper fetch utility.
type OpenAlexConfig struct {
	BaseURL    string  `yaml:"base_url"`
	Mailto     string  `yaml:"mailto"`
	PerPage    int     `yaml:"per_page"`
	Limit      int     `yaml:"limit"`
	RateLimit  float64 `yaml:"rate_limit"`
	OutputPath string  `yaml:"output_path"`
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := baseConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a configuration made only of defaults and environment
// overrides, with relative paths resolved against dir.
func Default(dir string) *Config {
	cfg := baseConfig()
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	expandPaths(&cfg, dir)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv copies non-empty environment overrides into cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvPostgresURL); v != "" {
		cfg.Vector.PostgresURL = v
	}
	if v := os.Getenv(EnvOpenAlexMailto); v != "" {
		cfg.OpenAlex.Mailto = v
	}
	if v := os.Getenv(EnvOllamaURL); v != "" {
		cfg.Embedding.OllamaURL = v
	}
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Vector.DatabasePath = expandPath(cfg.Vector.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	cfg.Ingest.PatentsPath = expandPath(cfg.Ingest.PatentsPath, configDir)
	cfg.Ingest.PapersPath = expandPath(cfg.Ingest.PapersPath, configDir)
	cfg.OpenAlex.OutputPath = expandPath(cfg.OpenAlex.OutputPath, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" or "../" are
// relative to configDir; other relative paths are relative to the home directory.
// Empty paths and ":memory:" are returned unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
