// Package embedding turns text into fixed-dimension vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. The same embedder must be
// used at ingestion and at query time so vectors are comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach calls embed for each text in order, stopping on cancellation.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// ModelName identifies the model behind e, as recorded with a collection at
// ingestion. It returns "" when e does not say.
func ModelName(e Embedder) string {
	if m, ok := e.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// CheckReady verifies that e can serve embeddings, for embedders backed by a
// remote service. Other embedders are always ready.
func CheckReady(ctx context.Context, e Embedder) error {
	if r, ok := e.(interface{ Ready(context.Context) error }); ok {
		return r.Ready(ctx)
	}
	return nil
}
