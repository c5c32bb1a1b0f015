package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rcliao/ejcluster/internal/votes"
)

const (
	DefaultMaxIter   = 100
	DefaultTolerance = 1e-6
)

// Options configures the k-means estimator.
type Options struct {
	MaxIter   int
	Tolerance float64
	// Scale standardizes each column to zero mean and unit variance before
	// clustering.
	Scale bool
}

// DefaultOptions returns the default k-means options.
func DefaultOptions() Options {
	return Options{
		MaxIter:   DefaultMaxIter,
		Tolerance: DefaultTolerance,
		Scale:     true,
	}
}

// KMeans is Lloyd's k-means seeded with the last K rows of the table as
// initial centroids. Tables built for clustering place one exemplar row
// per cluster at the end, so each exemplar starts in its own cluster.
type KMeans struct {
	K    int
	opts Options

	// Fitted state, available after FitPredict.
	Centroids  [][]float64
	Iterations int
	Inertia    float64
}

// NewKMeans returns an unfitted estimator for k clusters.
func NewKMeans(k int, opts Options) *KMeans {
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &KMeans{K: k, opts: opts}
}

// KMeansFactory returns a Factory producing KMeans estimators.
func KMeansFactory(opts Options) Factory {
	return func(nClusters int) Estimator {
		return NewKMeans(nClusters, opts)
	}
}

// FitPredict fits the centroids on t and returns the label of every row.
func (m *KMeans) FitPredict(t *votes.Table) ([]int, error) {
	if m.K <= 0 {
		return nil, fmt.Errorf("kmeans: invalid number of clusters %d", m.K)
	}
	if t.Len() < m.K {
		return nil, fmt.Errorf("kmeans: %d rows for %d clusters: %w", t.Len(), m.K, ErrTooFewRows)
	}

	// Remaining missing cells are mean-imputed so distances are defined.
	filled, err := votes.Impute(t, votes.ImputeMean)
	if err != nil {
		return nil, err
	}
	x := filled.Matrix()
	if m.opts.Scale {
		standardize(x)
	}

	centroids := make([][]float64, m.K)
	for i, row := range x[len(x)-m.K:] {
		centroids[i] = append([]float64(nil), row...)
	}

	labels := make([]int, len(x))
	for m.Iterations = 1; ; m.Iterations++ {
		m.Inertia = assign(x, centroids, labels)
		next := recompute(x, labels, centroids)
		shift := 0.0
		for i := range centroids {
			shift = math.Max(shift, floats.Distance(centroids[i], next[i], 2))
		}
		centroids = next
		if shift < m.opts.Tolerance || m.Iterations >= m.opts.MaxIter {
			break
		}
	}
	m.Inertia = assign(x, centroids, labels)
	m.Centroids = centroids
	return labels, nil
}

// assign labels each row with its nearest centroid (lowest index on ties)
// and returns the sum of squared distances.
func assign(x, centroids [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, row := range x {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := floats.Distance(row, c, 2); d < bestDist {
				best, bestDist = j, d
			}
		}
		labels[i] = best
		inertia += bestDist * bestDist
	}
	return inertia
}

// recompute returns the mean of each cluster's rows. Empty clusters keep
// their previous centroid.
func recompute(x [][]float64, labels []int, prev [][]float64) [][]float64 {
	sums := make([][]float64, len(prev))
	counts := make([]float64, len(prev))
	for i := range sums {
		sums[i] = make([]float64, len(prev[i]))
	}
	for i, row := range x {
		floats.Add(sums[labels[i]], row)
		counts[labels[i]]++
	}
	for i := range sums {
		if counts[i] == 0 {
			copy(sums[i], prev[i])
			continue
		}
		floats.Scale(1/counts[i], sums[i])
	}
	return sums
}

// standardize rescales every column in place to zero mean and unit
// standard deviation. Constant columns are only centered.
func standardize(x [][]float64) {
	if len(x) == 0 {
		return
	}
	col := make([]float64, len(x))
	for j := range x[0] {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := range x {
			x[i][j] = (x[i][j] - mean) / std
		}
	}
}
