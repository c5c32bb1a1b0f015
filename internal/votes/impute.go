package votes

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Imputation selects how missing cells are filled.
type Imputation string

const (
	// ImputeNone leaves missing cells in place.
	ImputeNone Imputation = "none"
	// ImputeMean fills each missing cell with its column mean.
	ImputeMean Imputation = "mean"
)

// ErrUnknownImputation is returned for an unsupported imputation method.
var ErrUnknownImputation = errors.New("unknown imputation method")

// ParseImputation accepts "", "none" and "mean".
func ParseImputation(s string) (Imputation, error) {
	switch Imputation(s) {
	case "", ImputeNone:
		return ImputeNone, nil
	case ImputeMean:
		return ImputeMean, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImputation, s)
}

// Impute returns a copy of t with missing cells filled according to method.
// Present cells are never changed. Under ImputeMean a column with no
// observed values is filled with 0, the neutral point of the encoding.
func Impute(t *Table, method Imputation) (*Table, error) {
	switch method {
	case "", ImputeNone:
		return t.Clone(), nil
	case ImputeMean:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownImputation, method)
	}

	out := t.Clone()
	out.Options.Imputation = method
	for col := range out.Columns {
		fill := columnMean(out, col)
		for i := range out.Rows {
			if isMissing(out.Rows[i].Values[col]) {
				out.Rows[i].Values[col] = fill
			}
		}
	}
	return out, nil
}

func columnMean(t *Table, col int) float64 {
	vals := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if v := r.Values[col]; !isMissing(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func mean(xs []float64) float64 {
	return stat.Mean(xs, nil)
}
