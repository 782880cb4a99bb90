package vector

import (
	"container/heap"
	"sort"
)

// topK keeps the k hits with the smallest distance seen so far.
// It is a max-heap on distance so the worst kept hit is evicted first.
type topK struct {
	k    int
	hits []*Hit
}

func newTopK(k int) *topK {
	if k < 0 {
		k = 0
	}
	return &topK{k: k, hits: make([]*Hit, 0, k)}
}

func (t *topK) Len() int { return len(t.hits) }

func (t *topK) Less(i, j int) bool {
	if t.hits[i].Distance != t.hits[j].Distance {
		return t.hits[i].Distance > t.hits[j].Distance
	}
	return t.hits[i].Document.ID > t.hits[j].Document.ID
}

func (t *topK) Swap(i, j int) { t.hits[i], t.hits[j] = t.hits[j], t.hits[i] }

func (t *topK) Push(x any) { t.hits = append(t.hits, x.(*Hit)) }

func (t *topK) Pop() any {
	n := len(t.hits)
	h := t.hits[n-1]
	t.hits = t.hits[:n-1]
	return h
}

// offer considers h for inclusion.
func (t *topK) offer(h *Hit) {
	if t.k == 0 {
		return
	}
	if len(t.hits) < t.k {
		heap.Push(t, h)
		return
	}
	worst := t.hits[0]
	if h.Distance < worst.Distance || (h.Distance == worst.Distance && h.Document.ID < worst.Document.ID) {
		t.hits[0] = h
		heap.Fix(t, 0)
	}
}

// sorted returns the kept hits by ascending distance, ties broken by ID.
func (t *topK) sorted() []*Hit {
	out := append([]*Hit(nil), t.hits...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Document.ID < out[j].Document.ID
	})
	return out
}
