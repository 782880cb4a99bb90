package cluster

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Miscellaneous labels hits that could not be clustered or named.
const Miscellaneous = "Miscellaneous"

const (
	// candidateTerms caps the vocabulary considered for a label.
	candidateTerms = 3
	// labelTerms is how many candidates make up a label.
	labelTerms = 2
)

// Labeler names a group of texts after its most characteristic terms.
type Labeler struct {
	mapping *mapping.IndexMappingImpl
}

// NewLabeler returns a labeler that tokenizes with bleve's standard English
// analyzer (unicode segmentation, lowercasing, English stop words).
func NewLabeler() *Labeler {
	return &Labeler{mapping: bleve.NewIndexMapping()}
}

// Label returns the top two of the three most frequent terms in texts, ranked
// by summed TF-IDF weight and joined with a space. It returns Miscellaneous
// when texts yield no terms and never panics.
func (l *Labeler) Label(texts []string) (label string) {
	defer func() {
		if r := recover(); r != nil {
			label = Miscellaneous
		}
	}()

	docs := make([][]string, 0, len(texts))
	for _, t := range texts {
		terms, err := l.tokenize(t)
		if err != nil {
			return Miscellaneous
		}
		docs = append(docs, terms)
	}
	vocab := topFrequent(docs, candidateTerms)
	if len(vocab) == 0 {
		return Miscellaneous
	}

	weights := tfidfWeights(docs, vocab)
	sort.SliceStable(vocab, func(i, j int) bool {
		wi, wj := weights[vocab[i]], weights[vocab[j]]
		if wi != wj {
			return wi > wj
		}
		return vocab[i] < vocab[j]
	})
	if len(vocab) > labelTerms {
		vocab = vocab[:labelTerms]
	}
	return strings.Join(vocab, " ")
}

func (l *Labeler) tokenize(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens, err := l.mapping.AnalyzeText(standard.Name, []byte(text))
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCount(tok.Term) < 2 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms, nil
}

// topFrequent returns the n terms with the highest total count across docs,
// ties broken alphabetically.
func topFrequent(docs [][]string, n int) []string {
	counts := make(map[string]int)
	for _, d := range docs {
		for _, t := range d {
			counts[t]++
		}
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// tfidfWeights sums, per vocabulary term, the l2-normalized TF-IDF weights
// of every document. idf is smoothed: ln((1+n)/(1+df)) + 1.
func tfidfWeights(docs [][]string, vocab []string) map[string]float64 {
	n := len(docs)
	tf := make([]map[string]float64, n)
	df := make(map[string]int, len(vocab))
	inVocab := make(map[string]bool, len(vocab))
	for _, v := range vocab {
		inVocab[v] = true
	}
	for i, d := range docs {
		tf[i] = make(map[string]float64)
		for _, t := range d {
			if inVocab[t] {
				tf[i][t]++
			}
		}
		for t := range tf[i] {
			df[t]++
		}
	}

	weights := make(map[string]float64, len(vocab))
	for i := range docs {
		row := make(map[string]float64, len(tf[i]))
		var norm float64
		for t, c := range tf[i] {
			w := c * (math.Log(float64(1+n)/float64(1+df[t])) + 1)
			row[t] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for t, w := range row {
			weights[t] += w / norm
		}
	}
	return weights
}
