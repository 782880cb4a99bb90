package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// MemoryIndex keeps collections in process and searches them by brute force.
// Suitable for tests and small datasets.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	spec CollectionSpec
	docs map[string]*models.Document
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memoryCollection)}
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// HasCollection reports whether name exists.
func (m *MemoryIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// CreateCollection creates an empty collection.
func (m *MemoryIndex) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[spec.Name]; ok {
		return fmt.Errorf("collection %q already exists", spec.Name)
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now().UTC()
	}
	m.collections[spec.Name] = &memoryCollection{spec: spec, docs: make(map[string]*models.Document)}
	return nil
}

// DescribeCollection returns the CollectionSpec of name.
func (m *MemoryIndex) DescribeCollection(ctx context.Context, name string) (*CollectionSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	spec := c.spec
	return &spec, nil
}

// DropCollection removes name.
func (m *MemoryIndex) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// ListCollections returns collection names in sorted order.
func (m *MemoryIndex) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert stores copies of docs.
func (m *MemoryIndex) Upsert(ctx context.Context, name string, docs []*models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	for _, d := range docs {
		if len(d.Vector) != c.spec.Dimensions {
			return fmt.Errorf("document %s: vector dimension mismatch: got %d, expected %d", d.ID, len(d.Vector), c.spec.Dimensions)
		}
	}
	for _, d := range docs {
		c.docs[d.ID] = cloneDocument(d)
	}
	return nil
}

// Search scans every document in the collection.
func (m *MemoryIndex) Search(ctx context.Context, name string, query []float32, k int, f filter.Filter) ([]*Hit, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if len(query) != c.spec.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.spec.Dimensions)
	}
	top := newTopK(k)
	for _, d := range c.docs {
		if !f.Match(d) {
			continue
		}
		top.offer(&Hit{Document: d, Distance: utils.L2Distance(query, d.Vector)})
	}
	hits := top.sorted()
	for i, h := range hits {
		hits[i] = &Hit{Document: cloneDocument(h.Document), Distance: h.Distance}
	}
	return hits, nil
}

// Count returns the number of documents in name.
func (m *MemoryIndex) Count(ctx context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return len(c.docs), nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func cloneDocument(d *models.Document) *models.Document {
	c := *d
	c.Vector = append([]float32(nil), d.Vector...)
	return &c
}

func validateSpec(spec CollectionSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if spec.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	return nil
}
