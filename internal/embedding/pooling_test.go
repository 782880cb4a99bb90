package embedding

import "testing"

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("meanPool = %v, want [2 3]", got)
	}
	if zero := meanPool(hidden, []int64{0, 0, 0}, 2); zero[0] != 0 || zero[1] != 0 {
		t.Errorf("empty mask should give zero vector, got %v", zero)
	}
}

func TestONNXOptions_withDefaults(t *testing.T) {
	o := ONNXOptions{}.withDefaults()
	if o.OutputName != "output" || o.Dimensions != 384 || o.MaxTokens != 256 {
		t.Errorf("unexpected defaults: %+v", o)
	}
	if o.VocabPath != "" {
		t.Errorf("vocab path without a model: got %q", o.VocabPath)
	}
	o = ONNXOptions{ModelPath: "/models/minilm/model.onnx"}.withDefaults()
	if o.VocabPath != "/models/minilm/vocab.txt" {
		t.Errorf("vocab path: got %q", o.VocabPath)
	}
}
