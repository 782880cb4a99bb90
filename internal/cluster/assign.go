package cluster

import (
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/pkg/utils"
)

// Options configures Assigner.
type Options struct {
	// MaxClusters caps k; k is min(MaxClusters, number of hits).
	MaxClusters int
	Seed        int64
}

// Assigner clusters hit vectors and labels every hit with its cluster's name.
type Assigner struct {
	opts    Options
	labeler *Labeler
	logger  *zap.Logger
}

// NewAssigner creates an Assigner. A nil logger disables logging.
func NewAssigner(opts Options, logger *zap.Logger) *Assigner {
	if opts.MaxClusters <= 0 {
		opts.MaxClusters = 5
	}
	return &Assigner{opts: opts, labeler: NewLabeler(), logger: utils.LoggerOrNop(logger)}
}

// Assign returns one sub-topic per hit. vectors[i] and abstracts[i] belong to
// hit i. With fewer than two hits, mismatched dimensions or any non-finite
// coordinate, every hit is labelled Miscellaneous.
func (a *Assigner) Assign(vectors [][]float32, abstracts []string) []string {
	n := len(vectors)
	labels := make([]string, n)
	for i := range labels {
		labels[i] = Miscellaneous
	}
	if n < 2 || !clusterable(vectors) {
		return labels
	}

	points := make([][]float64, n)
	for i, v := range vectors {
		points[i] = make([]float64, len(v))
		for j, x := range v {
			points[i][j] = float64(x)
		}
	}
	k := min(a.opts.MaxClusters, n)
	res := KMeans(points, KMeansOptions{K: k, Seed: a.opts.Seed})

	groups := make([][]string, k)
	for i, c := range res.Labels {
		if i < len(abstracts) {
			groups[c] = append(groups[c], abstracts[i])
		}
	}
	names := make([]string, k)
	for c := range groups {
		if len(groups[c]) == 0 {
			names[c] = Miscellaneous
			continue
		}
		names[c] = a.labeler.Label(groups[c])
	}
	for i, c := range res.Labels {
		labels[i] = names[c]
	}
	a.logger.Debug("hits clustered", zap.Int("hits", n), zap.Int("clusters", k), zap.Float64("inertia", res.Inertia))
	return labels
}

func clusterable(vectors [][]float32) bool {
	dim := len(vectors[0])
	if dim == 0 {
		return false
	}
	for _, v := range vectors {
		if len(v) != dim || !utils.AllFinite(v) {
			return false
		}
	}
	return true
}
