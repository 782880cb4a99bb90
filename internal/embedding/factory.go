package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// Provider names accepted by New.
const (
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// New creates the embedder selected by cfg.Provider, wrapped in an LRU cache.
// An ONNX model that cannot be loaded is an error unless cfg.FallbackToMock
// is set, in which case New logs a warning and uses the mock embedder.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.LoggerOrNop(logger)
	var e Embedder
	switch cfg.Provider {
	case ProviderONNX, "":
		onnx, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			VocabPath:  cfg.VocabPath,
			OutputName: cfg.OutputName,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil && !cfg.FallbackToMock {
			return nil, fmt.Errorf("load ONNX model %s: %w", cfg.ModelPath, err)
		}
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embeddings",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err))
			e = NewMockEmbedder(cfg.Dimensions)
		} else {
			e = onnx
		}
	case ProviderOllama:
		e = NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel, cfg.Dimensions)
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, ollama, mock)", cfg.Provider)
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", ModelName(e)),
		zap.Int("dimensions", e.Dimensions()))
	return WithCache(e, cfg.CacheSize), nil
}
