package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Get("a")
	c.Set("c", []float32{6}) // evicts b, a was used more recently
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestEmbeddingCache_copies(t *testing.T) {
	c := NewEmbeddingCache(1)
	in := []float32{1}
	c.Set("k", in)
	in[0] = 2
	out, _ := c.Get("k")
	out[0] = 3
	again, _ := c.Get("k")
	if again[0] != 1 {
		t.Errorf("cached value mutated: %v", again)
	}
}

func TestEmbeddingCache_disabled(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("k", []float32{1})
	if _, ok := c.Get("k"); ok {
		t.Error("zero-capacity cache should not store")
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, c.Embed)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := WithCache(inner, 10)
	if _, err := e.Embed(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	out, err := e.EmbedBatch(ctx, []string{"x", "y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || inner.calls != 3 {
		t.Errorf("batch should embed only misses: len=%d calls=%d", len(out), inner.calls)
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}
