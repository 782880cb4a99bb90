// Package vector provides named collections of embedded documents with
// filtered nearest-neighbour search under Euclidean distance.
package vector

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
)

// ErrCollectionNotFound is returned when an operation names a collection
// that does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// CollectionSpec describes a collection. Generation identifies one ingestion
// run so readers can tell rebuilt collections apart. Model names the embedder
// that produced the vectors; queries must be embedded by the same model.
type CollectionSpec struct {
	Name       string
	Dimensions int
	Generation string
	Model      string
	CreatedAt  time.Time
}

// Hit is a stored document together with its distance to the query.
// Document.Vector is populated.
type Hit struct {
	Document *models.Document
	Distance float64
}

// Index is a vector store holding named collections of documents.
// Implementations must be safe for concurrent use.
type Index interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	DescribeCollection(ctx context.Context, name string) (*CollectionSpec, error)
	// DropCollection removes a collection and its documents. Dropping a
	// missing collection is not an error.
	DropCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	// Upsert stores docs, replacing documents with the same ID.
	Upsert(ctx context.Context, name string, docs []*models.Document) error
	// Search returns at most k documents matching f, ordered by ascending
	// L2 distance to query.
	Search(ctx context.Context, name string, query []float32, k int, f filter.Filter) ([]*Hit, error)
	Count(ctx context.Context, name string) (int, error)
	Type() string
	Close() error
}
