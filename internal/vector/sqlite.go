package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// SQLiteIndex stores collections in a SQLite database. Metadata filters run in
// SQL; distances are computed in process over the filtered rows.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		generation TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		pub_date TEXT NOT NULL,
		citation_count INTEGER NOT NULL,
		field_of_research TEXT NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(collection, doc_type);
	CREATE INDEX IF NOT EXISTS idx_documents_pub_date ON documents(collection, pub_date);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return migrateModelColumn(db)
}

// migrateModelColumn adds collections.model to databases created before it existed.
func migrateModelColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(collections)`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == "model" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.Exec(`ALTER TABLE collections ADD COLUMN model TEXT NOT NULL DEFAULT ''`)
	return err
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// HasCollection reports whether name exists.
func (s *SQLiteIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	_, err := s.DescribeCollection(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateCollection inserts the collection row.
func (s *SQLiteIndex) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions, generation, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		spec.Name, spec.Dimensions, spec.Generation, spec.Model, spec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", spec.Name, err)
	}
	return nil
}

// DescribeCollection returns the CollectionSpec of name.
func (s *SQLiteIndex) DescribeCollection(ctx context.Context, name string) (*CollectionSpec, error) {
	var spec CollectionSpec
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, dimensions, generation, model, created_at FROM collections WHERE name = ?`, name,
	).Scan(&spec.Name, &spec.Dimensions, &spec.Generation, &spec.Model, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	spec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &spec, nil
}

// DropCollection deletes the collection and its documents in one transaction.
func (s *SQLiteIndex) DropCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("drop documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return tx.Commit()
}

// ListCollections returns collection names in sorted order.
func (s *SQLiteIndex) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Upsert inserts or replaces docs in a single transaction.
func (s *SQLiteIndex) Upsert(ctx context.Context, name string, docs []*models.Document) error {
	spec, err := s.DescribeCollection(ctx, name)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if len(d.Vector) != spec.Dimensions {
			return fmt.Errorf("document %s: vector dimension mismatch: got %d, expected %d", d.ID, len(d.Vector), spec.Dimensions)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (collection, id, title, abstract, doc_type, pub_date, citation_count, field_of_research, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, name, d.ID, d.Title, d.Abstract, d.DocType, d.PubDate,
			d.CitationCount, d.FieldOfResearch, float32SliceToBytes(d.Vector)); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Search loads the rows matching f and keeps the k closest.
func (s *SQLiteIndex) Search(ctx context.Context, name string, query []float32, k int, f filter.Filter) ([]*Hit, error) {
	spec, err := s.DescribeCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(query) != spec.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), spec.Dimensions)
	}
	where, args, err := f.SQL(filter.SQLite, 1)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, title, abstract, doc_type, pub_date, citation_count, field_of_research, vector
		FROM documents WHERE collection = ?`
	if where != "" {
		q += " AND " + where
	}
	rows, err := s.db.QueryContext(ctx, q, append([]any{name}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	top := newTopK(k)
	for rows.Next() {
		var d models.Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.Abstract, &d.DocType, &d.PubDate,
			&d.CitationCount, &d.FieldOfResearch, &blob); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Vector = bytesToFloat32Slice(blob)
		top.offer(&Hit{Document: &d, Distance: utils.L2Distance(query, d.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return top.sorted(), nil
}

// Count returns the number of documents in name.
func (s *SQLiteIndex) Count(ctx context.Context, name string) (int, error) {
	if _, err := s.DescribeCollection(ctx, name); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, name).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
