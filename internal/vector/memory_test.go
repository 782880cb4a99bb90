package vector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/trendlens/internal/filter"
	"github.com/hyperjump/trendlens/internal/models"
)

func sampleDocs() []*models.Document {
	return []*models.Document{
		{ID: "a", Title: "A", DocType: "paper", PubDate: "2020-01-01", CitationCount: 10, FieldOfResearch: "Computer Science", Vector: []float32{1, 0, 0}},
		{ID: "b", Title: "B", DocType: "paper", PubDate: "2021-05-05", CitationCount: 2, FieldOfResearch: "Biology", Vector: []float32{0.9, 0.1, 0}},
		{ID: "c", Title: "C", DocType: "patent", PubDate: "2019-03-03", CitationCount: 0, FieldOfResearch: "Unknown", Vector: []float32{0, 1, 0}},
		{ID: "d", Title: "D", DocType: "patent", PubDate: "2022-07-07", CitationCount: 50, FieldOfResearch: "Computer Vision", Vector: []float32{0, 0, 1}},
	}
}

// exerciseIndex runs the behaviour shared by every backend.
func exerciseIndex(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()

	ok, err := idx.HasCollection(ctx, "documents")
	if err != nil || ok {
		t.Fatalf("HasCollection before create = %v, %v", ok, err)
	}
	if _, err := idx.Search(ctx, "documents", []float32{1, 0, 0}, 2, filter.Filter{}); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("search on missing collection: got %v", err)
	}
	if err := idx.CreateCollection(ctx, CollectionSpec{Name: "documents", Dimensions: 3, Generation: "g1"}); err != nil {
		t.Fatal(err)
	}
	spec, err := idx.DescribeCollection(ctx, "documents")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Dimensions != 3 || spec.Generation != "g1" {
		t.Errorf("unexpected spec: %+v", spec)
	}
	if err := idx.Upsert(ctx, "documents", sampleDocs()); err != nil {
		t.Fatal(err)
	}
	bad := []*models.Document{{ID: "z", Vector: []float32{1, 2}}}
	if err := idx.Upsert(ctx, "documents", bad); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if n, err := idx.Count(ctx, "documents"); err != nil || n != 4 {
		t.Errorf("Count = %d, %v", n, err)
	}

	hits, err := idx.Search(ctx, "documents", []float32{1, 0, 0}, 2, filter.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Document.ID != "a" || hits[1].Document.ID != "b" {
		t.Fatalf("unexpected hits: %v", hitIDs(hits))
	}
	if hits[0].Distance != 0 || hits[0].Distance > hits[1].Distance {
		t.Errorf("distances not ascending: %v, %v", hits[0].Distance, hits[1].Distance)
	}
	if len(hits[0].Document.Vector) != 3 {
		t.Errorf("hit vector not returned: %v", hits[0].Document.Vector)
	}
	if hits[0].Document.FieldOfResearch != "Computer Science" || hits[0].Document.CitationCount != 10 {
		t.Errorf("metadata not returned: %+v", hits[0].Document)
	}

	f := filter.New(filter.Eq(filter.FieldDocType, "patent"))
	hits, err = idx.Search(ctx, "documents", []float32{1, 0, 0}, 10, f)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.Document.DocType != "patent" {
			t.Errorf("filter violated by %s", h.Document.ID)
		}
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 patents, got %v", hitIDs(hits))
	}

	f = filter.New(
		filter.Range(filter.FieldPubDate, "2020-01-01", "2021-12-31"),
		filter.AtLeast(filter.FieldCitationCount, 5),
		filter.Contains(filter.FieldFieldOfResearch, "Computer"),
	)
	hits, err = idx.Search(ctx, "documents", []float32{0, 0, 1}, 10, f)
	if err != nil {
		t.Fatal(err)
	}
	if got := hitIDs(hits); got != "[a]" {
		t.Errorf("combined filter hits = %s, want [a]", got)
	}

	updated := sampleDocs()[0]
	updated.Title = "A2"
	if err := idx.Upsert(ctx, "documents", []*models.Document{updated}); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(ctx, "documents"); n != 4 {
		t.Errorf("upsert should replace, count = %d", n)
	}

	names, err := idx.ListCollections(ctx)
	if err != nil || len(names) != 1 || names[0] != "documents" {
		t.Errorf("ListCollections = %v, %v", names, err)
	}
	if err := idx.DropCollection(ctx, "documents"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := idx.HasCollection(ctx, "documents"); ok {
		t.Error("collection still present after drop")
	}
	if err := idx.DropCollection(ctx, "documents"); err != nil {
		t.Errorf("dropping missing collection: %v", err)
	}
	if err := idx.CreateCollection(ctx, CollectionSpec{Name: "documents", Dimensions: 3, Generation: "g2"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(ctx, "documents"); n != 0 {
		t.Errorf("recreated collection should be empty, count = %d", n)
	}
}

func hitIDs(hits []*Hit) string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Document.ID
	}
	return fmt.Sprint(ids)
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	defer idx.Close()
	exerciseIndex(t, idx)
}

func TestMemoryIndex_returnsCopies(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	_ = idx.CreateCollection(ctx, CollectionSpec{Name: "c", Dimensions: 2})
	doc := &models.Document{ID: "x", Vector: []float32{1, 0}}
	if err := idx.Upsert(ctx, "c", []*models.Document{doc}); err != nil {
		t.Fatal(err)
	}
	doc.Vector[0] = 9
	hits, _ := idx.Search(ctx, "c", []float32{1, 0}, 1, filter.Filter{})
	if hits[0].Document.Vector[0] != 1 {
		t.Error("stored vector aliased caller slice")
	}
}

func TestMemoryIndex_createDuplicate(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	if err := idx.CreateCollection(ctx, CollectionSpec{Name: "c", Dimensions: 2}); err != nil {
		t.Fatal(err)
	}
	if err := idx.CreateCollection(ctx, CollectionSpec{Name: "c", Dimensions: 2}); err == nil {
		t.Error("expected duplicate collection error")
	}
	if err := idx.CreateCollection(ctx, CollectionSpec{Name: "d"}); err == nil {
		t.Error("expected error for zero dimensions")
	}
}
