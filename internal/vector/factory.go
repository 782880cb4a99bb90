package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/trendlens/internal/config"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-process brute-force search. Nothing is persisted.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeSQLite stores documents in a local SQLite file.
	IndexTypeSQLite IndexType = "sqlite"
	// IndexTypePostgres stores documents in PostgreSQL with the pgvector extension.
	IndexTypePostgres IndexType = "postgres"
)

// NewIndex creates the index selected by cfg.Type.
// Supported types: "sqlite" (default), "memory", "postgres".
func NewIndex(ctx context.Context, cfg config.VectorConfig) (Index, error) {
	switch IndexType(cfg.Type) {
	case IndexTypeSQLite, "":
		return NewSQLiteIndex(cfg.DatabasePath)
	case IndexTypeMemory:
		return NewMemoryIndex(), nil
	case IndexTypePostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres index requires postgres_url")
		}
		return NewPostgresIndex(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: sqlite, memory, postgres)", cfg.Type)
	}
}
