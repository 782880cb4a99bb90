package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
)

// PostgresIndex stores collections in PostgreSQL using the pgvector extension.
// Distances are computed by the database with the <-> (L2) operator.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresIndex connects to dsn and initializes the schema.
func NewPostgresIndex(ctx context.Context, dsn string) (*PostgresIndex, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresIndex{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS collections (
  name TEXT PRIMARY KEY,
  dimensions INTEGER NOT NULL,
  generation TEXT NOT NULL,
  model TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE collections ADD COLUMN IF NOT EXISTS model TEXT NOT NULL DEFAULT '';

CREATE TABLE IF NOT EXISTS documents (
  collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
  id TEXT NOT NULL,
  title TEXT NOT NULL,
  abstract TEXT NOT NULL,
  doc_type TEXT NOT NULL,
  pub_date TEXT NOT NULL,
  citation_count INTEGER NOT NULL,
  field_of_research TEXT NOT NULL,
  embedding vector NOT NULL,
  PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(collection, doc_type);
CREATE INDEX IF NOT EXISTS idx_documents_pub_date ON documents(collection, pub_date);`)
	return err
}

// Type returns the index type identifier.
func (p *PostgresIndex) Type() string {
	return string(IndexTypePostgres)
}

// HasCollection reports whether name exists.
func (p *PostgresIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collections WHERE name=$1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has collection: %w", err)
	}
	return exists, nil
}

// CreateCollection inserts the collection row.
func (p *PostgresIndex) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO collections (name, dimensions, generation, model, created_at) VALUES ($1, $2, $3, $4, $5)`,
		spec.Name, spec.Dimensions, spec.Generation, spec.Model, spec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", spec.Name, err)
	}
	return nil
}

// DescribeCollection returns the CollectionSpec of name.
func (p *PostgresIndex) DescribeCollection(ctx context.Context, name string) (*CollectionSpec, error) {
	var spec CollectionSpec
	err := p.pool.QueryRow(ctx,
		`SELECT name, dimensions, generation, model, created_at FROM collections WHERE name=$1`, name,
	).Scan(&spec.Name, &spec.Dimensions, &spec.Generation, &spec.Model, &spec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("describe collection: %w", err)
	}
	return &spec, nil
}

// DropCollection deletes the collection; documents cascade.
func (p *PostgresIndex) DropCollection(ctx context.Context, name string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM collections WHERE name=$1`, name); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// ListCollections returns collection names in sorted order.
func (p *PostgresIndex) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return names, nil
}

// Upsert inserts or updates docs in one transaction.
func (p *PostgresIndex) Upsert(ctx context.Context, name string, docs []*models.Document) error {
	spec, err := p.DescribeCollection(ctx, name)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if len(d.Vector) != spec.Dimensions {
			return fmt.Errorf("document %s: vector dimension mismatch: got %d, expected %d", d.ID, len(d.Vector), spec.Dimensions)
		}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert documents: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, d := range docs {
		_, err := tx.Exec(ctx, `
INSERT INTO documents (collection, id, title, abstract, doc_type, pub_date, citation_count, field_of_research, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
ON CONFLICT (collection, id)
DO UPDATE SET
  title = EXCLUDED.title,
  abstract = EXCLUDED.abstract,
  doc_type = EXCLUDED.doc_type,
  pub_date = EXCLUDED.pub_date,
  citation_count = EXCLUDED.citation_count,
  field_of_research = EXCLUDED.field_of_research,
  embedding = EXCLUDED.embedding`,
			name, d.ID, d.Title, d.Abstract, d.DocType, d.PubDate, d.CitationCount, d.FieldOfResearch, ToLiteral(d.Vector))
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit documents tx: %w", err)
	}
	return nil
}

// Search orders matching rows by pgvector L2 distance.
func (p *PostgresIndex) Search(ctx context.Context, name string, query []float32, k int, f filter.Filter) ([]*Hit, error) {
	if k <= 0 {
		return []*Hit{}, nil
	}
	ok, err := p.HasCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	sql, args, err := buildPostgresSearch(name, query, k, f)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]*Hit, 0, k)
	for rows.Next() {
		var d models.Document
		var emb string
		var dist float64
		if err := rows.Scan(&d.ID, &d.Title, &d.Abstract, &d.DocType, &d.PubDate,
			&d.CitationCount, &d.FieldOfResearch, &emb, &dist); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		if d.Vector, err = ParseLiteral(emb); err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		hits = append(hits, &Hit{Document: &d, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return hits, nil
}

func buildPostgresSearch(name string, query []float32, k int, f filter.Filter) (string, []any, error) {
	args := []any{name, ToLiteral(query), k}
	where, fargs, err := f.SQL(filter.Postgres, len(args))
	if err != nil {
		return "", nil, err
	}
	filterSQL := ""
	if where != "" {
		filterSQL = "\n  AND " + where
	}
	sql := `
SELECT id, title, abstract, doc_type, pub_date, citation_count, field_of_research,
       embedding::text,
       embedding <-> $2::vector AS distance
FROM documents
WHERE collection = $1` + filterSQL + `
ORDER BY distance, id
LIMIT $3`
	return sql, append(args, fargs...), nil
}

// Count returns the number of documents in name.
func (p *PostgresIndex) Count(ctx context.Context, name string) (int, error) {
	ok, err := p.HasCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE collection=$1`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (p *PostgresIndex) Close() error {
	p.pool.Close()
	return nil
}

// ToLiteral renders v in pgvector's text format, e.g. "[0.1,0.2]".
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ParseLiteral parses pgvector's text format back into a vector.
func ParseLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("invalid vector literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
