package openalex

import (
	"sort"
	"strings"
)

type positionedWord struct {
	pos  int
	word string
}

// ReconstructAbstract rebuilds abstract text from an inverted index mapping
// each word to the positions it occupies. Words are ordered by position, ties
// by word.
func ReconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	var words []positionedWord
	for w, positions := range index {
		for _, p := range positions {
			words = append(words, positionedWord{pos: p, word: w})
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].pos != words[j].pos {
			return words[i].pos < words[j].pos
		}
		return words[i].word < words[j].word
	})
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}
