package embedding

import "path/filepath"

// OutputLastHiddenState names the per-token output of sentence-transformer
// exports that must be mean-pooled.
const OutputLastHiddenState = "last_hidden_state"

// ONNXOptions configures an ONNX embedder.
type ONNXOptions struct {
	ModelPath string
	// VocabPath is the WordPiece vocabulary; vocab.txt next to the model by default.
	VocabPath  string
	OutputName string
	Dimensions int
	MaxTokens  int
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.OutputName == "" {
		o.OutputName = "output"
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 2 {
		o.MaxTokens = 256
	}
	if o.VocabPath == "" && o.ModelPath != "" {
		o.VocabPath = filepath.Join(filepath.Dir(o.ModelPath), "vocab.txt")
	}
	return o
}

// meanPool averages the token embeddings in hidden (laid out as
// [tokens][dims]) over positions where mask is 1.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for t, m := range mask {
		if m == 0 || (t+1)*dims > len(hidden) {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
