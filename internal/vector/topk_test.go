package vector

import (
	"testing"

	"github.com/hyperjump/trendlens/internal/models"
)

func TestTopK(t *testing.T) {
	top := newTopK(3)
	for i, d := range []float64{5, 1, 4, 2, 3, 0.5} {
		top.offer(&Hit{Document: &models.Document{ID: string(rune('a' + i))}, Distance: d})
	}
	got := top.sorted()
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	want := []float64{0.5, 1, 2}
	for i := range want {
		if got[i].Distance != want[i] {
			t.Errorf("pos %d: distance %v, want %v", i, got[i].Distance, want[i])
		}
	}
	if empty := newTopK(0); len(empty.sorted()) != 0 {
		t.Error("k=0 should keep nothing")
	}
}
