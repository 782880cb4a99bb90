package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
		t.Errorf("got %v, want [0.6 0.8]", x)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should be unchanged, got %v", zero)
	}
}

func TestL2Distance(t *testing.T) {
	if d := L2Distance([]float32{0, 0}, []float32{3, 4}); d != 5 {
		t.Errorf("L2Distance = %v, want 5", d)
	}
	if d := SquaredL2([]float32{1, 1}, []float32{1, 1}); d != 0 {
		t.Errorf("SquaredL2 of identical vectors = %v, want 0", d)
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float32{1, -2, 0}) {
		t.Error("finite vector reported non-finite")
	}
	if AllFinite([]float32{1, float32(math.NaN())}) {
		t.Error("NaN not detected")
	}
	if AllFinite([]float32{float32(math.Inf(1))}) {
		t.Error("+Inf not detected")
	}
	if !AllFinite(nil) {
		t.Error("empty vector is trivially finite")
	}
}
