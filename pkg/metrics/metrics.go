// Package metrics defines the capability set the evaluator needs from a
// quality metric: additivity, error granularity, evaluation over an output
// range, merging of partial results, and finalization to a scalar. Reference
// implementations cover the common regression and ranking cases.
package metrics

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// Granularity describes the index space a metric is evaluated over.
type Granularity int

// Supported granularities.
const (
	PerObject Granularity = iota
	PerQuery
	Pairwise
)

// String returns the granularity name.
func (g Granularity) String() string {
	switch g {
	case PerObject:
		return "per-object"
	case PerQuery:
		return "per-query"
	case Pairwise:
		return "pairwise"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Holder is a partial metric result: a small vector of accumulated
// statistics. For additive metrics, merging holders from disjoint document
// ranges is equivalent to evaluating the union at once.
type Holder struct {
	Stats []float64
}

// Add merges other into h elementwise. An empty receiver adopts the other
// holder's shape.
func (h *Holder) Add(other Holder) {
	if len(h.Stats) == 0 {
		h.Stats = make([]float64, len(other.Stats))
	}

	for i := range other.Stats {
		h.Stats[i] += other.Stats[i]
	}
}

// Metric is the closed operation set the evaluator dispatches over.
// Eval computes a partial result over [begin, end); the index space is
// documents for per-object metrics and groups for per-query and pairwise
// metrics. HigherIsBetter gives the optimization direction of the finalized
// score. Implementations must be pure with respect to their inputs.
type Metric interface {
	Description() string
	IsAdditive() bool
	Granularity() Granularity
	HigherIsBetter() bool
	Eval(
		approx [][]float64,
		target, weights []float32,
		groups []dataset.GroupInfo,
		begin, end int,
		pool *parallel.Pool,
	) (Holder, error)
	Merge(a, b Holder) Holder
	Finalize(h Holder) float64
}

// ErrUnknownMetric is returned by ParseList for unrecognized metric names.
var ErrUnknownMetric = errors.New("unknown metric")

// ParseList constructs metrics from their names.
func ParseList(names []string) ([]Metric, error) {
	result := make([]Metric, 0, len(names))

	for _, name := range names {
		switch name {
		case "RMSE":
			result = append(result, NewRMSE())
		case "MAE":
			result = append(result, NewMAE())
		case "GroupRMSE":
			result = append(result, NewGroupRMSE())
		case "AUC":
			result = append(result, NewAUC())
		case "MedianAE":
			result = append(result, NewMedianAE())
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
	}

	return result, nil
}

// mergeByAdd is the shared merge rule: elementwise stat addition.
func mergeByAdd(a, b Holder) Holder {
	var out Holder

	out.Add(a)
	out.Add(b)

	return out
}
