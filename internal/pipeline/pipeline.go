// Package pipeline provides the pluggable clustering estimator interface and
// a default k-means estimator anchored on exemplar rows.
package pipeline

import (
	"errors"

	"github.com/rcliao/ejcluster/internal/votes"
)

// ErrTooFewRows is returned when a table has fewer rows than clusters.
var ErrTooFewRows = errors.New("fewer rows than clusters")

// Estimator assigns one integer label per table row.
type Estimator interface {
	FitPredict(t *votes.Table) ([]int, error)
}

// Factory builds a fresh estimator for the given number of clusters.
type Factory func(nClusters int) Estimator

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(t *votes.Table) ([]int, error)

// FitPredict calls f(t).
func (f EstimatorFunc) FitPredict(t *votes.Table) ([]int, error) { return f(t) }
