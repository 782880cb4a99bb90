// Package search runs semantic queries: embed, filtered k-NN, sub-topic
// clustering and trend aggregation.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/cluster"
	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/embedding"
	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/internal/vector"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// NoResultsMessage is returned in the error field when a query matches nothing.
const NoResultsMessage = "No results found. Try broadening your filters (e.g., use a more general field of research, a wider date range, or lower citation threshold)."

// UntitledTitle replaces empty titles in results.
const UntitledTitle = "Untitled"

// ErrModelMismatch is returned by CheckReady when the collection was embedded
// by a different model than the one configured for queries.
var ErrModelMismatch = errors.New("embedding model does not match collection")

// Service answers search requests against one collection.
type Service struct {
	index      vector.Index
	embedder   embedding.Embedder
	assigner   *cluster.Assigner
	collection string
	topK       int
	logger     *zap.Logger
}

// NewService creates a Service. A nil assigner is built from cfg.
func NewService(
	index vector.Index,
	embedder embedding.Embedder,
	assigner *cluster.Assigner,
	cfg config.SearchConfig,
	collection string,
	logger *zap.Logger,
) *Service {
	logger = utils.LoggerOrNop(logger)
	if assigner == nil {
		assigner = cluster.NewAssigner(cluster.Options{MaxClusters: cfg.MaxClusters, Seed: cfg.Seed}, logger)
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 50
	}
	return &Service{
		index:      index,
		embedder:   embedder,
		assigner:   assigner,
		collection: collection,
		topK:       topK,
		logger:     logger,
	}
}

// Collection returns the collection the service queries.
func (s *Service) Collection() string {
	return s.collection
}

// Search answers req. Failures are reported in the response's Error field.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) *models.SearchResponse {
	start := time.Now()
	resp := s.search(ctx, req)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp
}

func (s *Service) search(ctx context.Context, req *models.SearchRequest) *models.SearchResponse {
	if req == nil {
		return models.NewErrorResponse(models.ErrEmptyQuery.Error())
	}
	if err := req.Validate(); err != nil {
		return models.NewErrorResponse(err.Error())
	}
	f := filter.FromRequest(req)

	query, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		return models.NewErrorResponse(fmt.Sprintf("embedding failed: %v", err))
	}
	hits, err := s.index.Search(ctx, s.collection, query, s.topK, f)
	if err != nil {
		s.logger.Error("vector search failed",
			zap.String("collection", s.collection),
			zap.Stringer("filter", f),
			zap.Error(err))
		return models.NewErrorResponse(fmt.Sprintf("vector search failed: %v", err))
	}
	if len(hits) == 0 {
		s.logger.Debug("no hits", zap.String("query", req.Text), zap.Stringer("filter", f))
		return models.NewErrorResponse(NoResultsMessage)
	}

	docs := make([]*models.SearchHit, 0, len(hits))
	vectors := make([][]float32, 0, len(hits))
	abstracts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h == nil || h.Document == nil {
			continue
		}
		doc := *h.Document
		if doc.Title == "" {
			doc.Title = UntitledTitle
		}
		vec := doc.Vector
		if len(vec) == 0 {
			vec = make([]float32, len(query))
		}
		doc.Vector = nil
		docs = append(docs, &models.SearchHit{Document: doc})
		vectors = append(vectors, vec)
		abstracts = append(abstracts, doc.Abstract)
	}
	if len(docs) == 0 {
		s.logger.Warn("index returned only empty hits", zap.Int("hits", len(hits)))
		return models.NewErrorResponse(NoResultsMessage)
	}

	topics := s.assigner.Assign(vectors, abstracts)
	for i, d := range docs {
		d.SubTopic = topics[i]
	}
	trends := trend.Trends(docs)
	s.logger.Debug("search complete",
		zap.String("query", req.Text),
		zap.Int("hits", len(docs)),
		zap.Int("topics", len(trends)))
	return &models.SearchResponse{
		Documents: docs,
		Trends:    trends,
		Velocity:  trend.Velocity(trends),
	}
}

// ListCollections returns the collections in the index.
func (s *Service) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.index.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// CheckReady verifies the index is reachable, the collection exists, the
// embedder can serve queries and it is the model the collection was built with.
func (s *Service) CheckReady(ctx context.Context) error {
	ok, err := s.index.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("vector index unreachable: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, s.collection)
	}
	if err := embedding.CheckReady(ctx, s.embedder); err != nil {
		return fmt.Errorf("embedder unavailable: %w", err)
	}
	spec, err := s.index.DescribeCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("describe collection: %w", err)
	}
	if spec.Dimensions != s.embedder.Dimensions() {
		return fmt.Errorf("%w: collection %s has %d dimensions, embedder produces %d",
			ErrModelMismatch, s.collection, spec.Dimensions, s.embedder.Dimensions())
	}
	model := embedding.ModelName(s.embedder)
	if spec.Model != "" && model != "" && spec.Model != model {
		return fmt.Errorf("%w: collection %s was embedded with %s, queries use %s; re-run ingest",
			ErrModelMismatch, s.collection, spec.Model, model)
	}
	return nil
}

// Stats summarises the service's collection.
type Stats struct {
	Collection string    `json:"collection"`
	IndexType  string    `json:"index_type"`
	Documents  int       `json:"documents"`
	Dimensions int       `json:"dimensions"`
	Generation string    `json:"generation,omitempty"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// Stats describes the collection. It returns vector.ErrCollectionNotFound
// when the collection has not been ingested.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	spec, err := s.index.DescribeCollection(ctx, s.collection)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("describe collection: %w", err)
	}
	n, err := s.index.Count(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	return &Stats{
		Collection: spec.Name,
		IndexType:  s.index.Type(),
		Documents:  n,
		Dimensions: spec.Dimensions,
		Generation: spec.Generation,
		Model:      spec.Model,
		CreatedAt:  spec.CreatedAt,
	}, nil
}
