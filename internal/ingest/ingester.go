package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/embedding"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/vector"
	"github.com/hyperjump/trendlens/pkg/utils"
)

const (
	defaultBatchSize = 256
	defaultWorkers   = 4
)

// Ingester rebuilds a vector collection from source tables.
type Ingester struct {
	index      vector.Index
	embedder   embedding.Embedder
	collection string
	batchSize  int
	workers    int
	rowLimit   int
	logger     *zap.Logger
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IngesterOption {
	return func(in *Ingester) { in.logger = l }
}

// WithBatchSize sets how many documents are embedded and upserted per batch.
func WithBatchSize(n int) IngesterOption {
	return func(in *Ingester) {
		if n > 0 {
			in.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are embedded concurrently.
func WithWorkers(n int) IngesterOption {
	return func(in *Ingester) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithRowLimit caps the rows read from each source; 0 reads all rows.
func WithRowLimit(n int) IngesterOption {
	return func(in *Ingester) { in.rowLimit = n }
}

// NewIngester creates an ingester writing to collection in index.
func NewIngester(index vector.Index, embedder embedding.Embedder, collection string, opts ...IngesterOption) *Ingester {
	in := &Ingester{
		index:      index,
		embedder:   embedder,
		collection: collection,
		batchSize:  defaultBatchSize,
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.LoggerOrNop(in.logger)
	return in
}

// Report summarizes one rebuild.
type Report struct {
	Generation string        `json:"generation"`
	Collection string        `json:"collection"`
	Patents    int           `json:"patents"`
	Papers     int           `json:"papers"`
	Documents  int           `json:"documents"`
	Duration   time.Duration `json:"duration"`
}

// Rebuild reads both sources and replaces the collection with their contents.
// An empty path skips that source.
func (in *Ingester) Rebuild(ctx context.Context, patentsPath, papersPath string) (*Report, error) {
	patents, err := in.readSource(patentsPath)
	if err != nil {
		return nil, fmt.Errorf("load patents: %w", err)
	}
	papers, err := in.readSource(papersPath)
	if err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}
	return in.Load(ctx, patents, papers)
}

func (in *Ingester) readSource(path string) (*Table, error) {
	if path == "" {
		return nil, nil
	}
	t, err := ReadTable(path, in.rowLimit)
	if err != nil {
		return nil, err
	}
	in.logger.Info("source loaded", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return t, nil
}

// Load preprocesses the tables, embeds every document and then drops and
// recreates the collection. Embedding happens before the drop so a failed
// run leaves the previous collection in place.
func (in *Ingester) Load(ctx context.Context, patents, papers *Table) (*Report, error) {
	start := time.Now()
	report := &Report{
		Generation: uuid.New().String(),
		Collection: in.collection,
	}
	if patents != nil {
		report.Patents = len(patents.Rows)
	}
	if papers != nil {
		report.Papers = len(papers.Rows)
	}
	logger := in.logger.With(zap.String("generation", report.Generation), zap.String("collection", in.collection))

	if missing := MissingColumns(patents, PatentColumns); len(missing) > 0 {
		logger.Warn("patent source lacks columns, defaults apply", zap.Strings("columns", missing))
	}
	if missing := MissingColumns(papers, PaperColumns); len(missing) > 0 {
		logger.Warn("paper source lacks columns, defaults apply", zap.Strings("columns", missing))
	}
	docs := Preprocess(patents, papers)
	report.Documents = len(docs)
	logger.Info("documents preprocessed", zap.Int("documents", len(docs)))

	if err := in.embedAll(ctx, docs); err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	logger.Info("documents embedded", zap.Int("documents", len(docs)))

	exists, err := in.index.HasCollection(ctx, in.collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if err := in.index.DropCollection(ctx, in.collection); err != nil {
			return nil, fmt.Errorf("drop collection: %w", err)
		}
		logger.Info("dropped existing collection")
	}
	spec := vector.CollectionSpec{
		Name:       in.collection,
		Dimensions: in.embedder.Dimensions(),
		Generation: report.Generation,
		Model:      embedding.ModelName(in.embedder),
	}
	if err := in.index.CreateCollection(ctx, spec); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	for lo := 0; lo < len(docs); lo += in.batchSize {
		hi := min(lo+in.batchSize, len(docs))
		if err := in.index.Upsert(ctx, in.collection, docs[lo:hi]); err != nil {
			return nil, fmt.Errorf("insert documents %d-%d: %w", lo, hi, err)
		}
		logger.Debug("batch inserted", zap.Int("from", lo), zap.Int("to", hi))
	}
	report.Duration = time.Since(start)
	logger.Info("collection rebuilt",
		zap.Int("documents", len(docs)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// embedAll fills doc.Vector for every document, embedding batches on a
// bounded worker pool. The first error cancels the remaining batches.
func (in *Ingester) embedAll(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	pool, err := ants.NewPool(in.workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	dims := in.embedder.Dimensions()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for lo := 0; lo < len(docs); lo += in.batchSize {
		batch := docs[lo:min(lo+in.batchSize, len(docs))]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = EmbeddingText(d)
			}
			vecs, err := in.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				fail(err)
				return
			}
			if len(vecs) != len(batch) {
				fail(fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(batch)))
				return
			}
			for i, d := range batch {
				if len(vecs[i]) != dims {
					fail(fmt.Errorf("document %s: embedding has %d dimensions, expected %d", d.ID, len(vecs[i]), dims))
					return
				}
				d.Vector = vecs[i]
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", submitErr))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
