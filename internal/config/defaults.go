package config

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "documents"

// baseConfig returns defaults for settings where zero is a valid choice.
// They are in place before the file is decoded, so only absent keys keep them.
func baseConfig() Config {
	var cfg Config
	cfg.Search.Seed = 42
	cfg.Ingest.RowLimit = 10000
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg. Settings where
// zero is meaningful (search.seed, ingest.row_limit) are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "*"}
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 60
	}
	if cfg.Vector.Type == "" {
		cfg.Vector.Type = "sqlite"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = DefaultCollection
	}
	if cfg.Vector.DatabasePath == "" {
		cfg.Vector.DatabasePath = "/usr/local/var/trendlens/data/vectors.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/trendlens/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "output"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "all-minilm:l6-v2"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 50
	}
	if cfg.Search.MaxClusters == 0 {
		cfg.Search.MaxClusters = 5
	}
	if cfg.Ingest.PatentsPath == "" {
		cfg.Ingest.PatentsPath = "./data/raw/patents.csv"
	}
	if cfg.Ingest.PapersPath == "" {
		cfg.Ingest.PapersPath = "./data/raw/papers.csv"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 256
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.OpenAlex.BaseURL == "" {
		cfg.OpenAlex.BaseURL = "https://api.openalex.org"
	}
	if cfg.OpenAlex.PerPage == 0 {
		cfg.OpenAlex.PerPage = 200
	}
	if cfg.OpenAlex.Limit == 0 {
		cfg.OpenAlex.Limit = 10000
	}
	if cfg.OpenAlex.RateLimit == 0 {
		cfg.OpenAlex.RateLimit = 10
	}
	if cfg.OpenAlex.OutputPath == "" {
		cfg.OpenAlex.OutputPath = "./data/raw/papers.csv"
	}
}
