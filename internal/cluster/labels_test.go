package cluster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabeler_Label(t *testing.T) {
	l := NewLabeler()
	label := l.Label([]string{
		"Graphene batteries store energy in graphene sheets.",
		"A graphene anode improves battery energy density.",
		"Energy storage with graphene.",
	})
	words := strings.Fields(label)
	assert.Len(t, words, 2)
	assert.Contains(t, words, "graphene")
	for _, w := range words {
		assert.NotContains(t, []string{"in", "a", "with", "the"}, w, "stop words must be excluded")
	}
}

func TestLabeler_deterministic(t *testing.T) {
	texts := []string{"protein folding prediction", "protein structure prediction", "folding dynamics"}
	l := NewLabeler()
	assert.Equal(t, l.Label(texts), l.Label(texts))
}

func TestLabeler_singleTerm(t *testing.T) {
	assert.Equal(t, "qubits", NewLabeler().Label([]string{"Qubits!", "qubits"}))
}

func TestLabeler_emptyInput(t *testing.T) {
	l := NewLabeler()
	assert.Equal(t, Miscellaneous, l.Label(nil))
	assert.Equal(t, Miscellaneous, l.Label([]string{"", "  "}))
	assert.Equal(t, Miscellaneous, l.Label([]string{"the and of a"}))
	assert.Equal(t, Miscellaneous, l.Label([]string{"x y z"}), "single-character tokens are dropped")
}

func TestTopFrequent(t *testing.T) {
	docs := [][]string{{"b", "a", "c", "d"}, {"b", "c"}, {"b"}}
	assert.Equal(t, []string{"b", "c", "a"}, topFrequent(docs, 3))
}

func TestTFIDFWeights(t *testing.T) {
	// "common" appears in every document so it is discounted by idf
	docs := [][]string{{"common", "rare"}, {"common"}, {"common"}}
	w := tfidfWeights(docs, []string{"common", "rare"})
	assert.Greater(t, w["common"], 0.0)
	assert.Greater(t, w["rare"], 0.0)
	// rows are l2-normalized so a lone term contributes exactly 1
	assert.InDelta(t, 2.5086, w["common"], 1e-3)
	assert.InDelta(t, 0.8611, w["rare"], 1e-3)
}
