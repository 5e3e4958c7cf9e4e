package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// ErrNoOutput is returned when a metric is evaluated against an empty
// output matrix.
var ErrNoOutput = errors.New("metric eval: empty output matrix")

// statCount is the holder width shared by the weighted-error metrics:
// stats[0] accumulates weighted error, stats[1] accumulates weight.
const statCount = 2

// RMSE is the additive per-object root-mean-squared error.
type RMSE struct{}

// NewRMSE creates an RMSE metric.
func NewRMSE() *RMSE { return &RMSE{} }

// Description implements Metric.
func (m *RMSE) Description() string { return "RMSE" }

// IsAdditive implements Metric.
func (m *RMSE) IsAdditive() bool { return true }

// Granularity implements Metric.
func (m *RMSE) Granularity() Granularity { return PerObject }

// HigherIsBetter implements Metric.
func (m *RMSE) HigherIsBetter() bool { return false }

// Eval implements Metric over the document range [begin, end).
func (m *RMSE) Eval(
	approx [][]float64,
	target, weights []float32,
	_ []dataset.GroupInfo,
	begin, end int,
	pool *parallel.Pool,
) (Holder, error) {
	if len(approx) == 0 {
		return Holder{}, ErrNoOutput
	}

	return weightedErrorSum(approx[0], target, weights, begin, end, pool, func(diff float64) float64 {
		return diff * diff
	}), nil
}

// Merge implements Metric.
func (m *RMSE) Merge(a, b Holder) Holder { return mergeByAdd(a, b) }

// Finalize implements Metric.
func (m *RMSE) Finalize(h Holder) float64 {
	if len(h.Stats) < statCount || h.Stats[1] == 0 {
		return 0
	}

	return math.Sqrt(h.Stats[0] / h.Stats[1])
}

// MAE is the additive per-object mean absolute error.
type MAE struct{}

// NewMAE creates an MAE metric.
func NewMAE() *MAE { return &MAE{} }

// Description implements Metric.
func (m *MAE) Description() string { return "MAE" }

// IsAdditive implements Metric.
func (m *MAE) IsAdditive() bool { return true }

// Granularity implements Metric.
func (m *MAE) Granularity() Granularity { return PerObject }

// HigherIsBetter implements Metric.
func (m *MAE) HigherIsBetter() bool { return false }

// Eval implements Metric over the document range [begin, end).
func (m *MAE) Eval(
	approx [][]float64,
	target, weights []float32,
	_ []dataset.GroupInfo,
	begin, end int,
	pool *parallel.Pool,
) (Holder, error) {
	if len(approx) == 0 {
		return Holder{}, ErrNoOutput
	}

	return weightedErrorSum(approx[0], target, weights, begin, end, pool, math.Abs), nil
}

// Merge implements Metric.
func (m *MAE) Merge(a, b Holder) Holder { return mergeByAdd(a, b) }

// Finalize implements Metric.
func (m *MAE) Finalize(h Holder) float64 {
	if len(h.Stats) < statCount || h.Stats[1] == 0 {
		return 0
	}

	return h.Stats[0] / h.Stats[1]
}

// GroupRMSE is the additive per-query metric: within each group the best
// constant shift is subtracted before squaring, so it scores ranking quality
// of the output within groups rather than absolute calibration.
type GroupRMSE struct{}

// NewGroupRMSE creates a GroupRMSE metric.
func NewGroupRMSE() *GroupRMSE { return &GroupRMSE{} }

// Description implements Metric.
func (m *GroupRMSE) Description() string { return "GroupRMSE" }

// IsAdditive implements Metric.
func (m *GroupRMSE) IsAdditive() bool { return true }

// Granularity implements Metric.
func (m *GroupRMSE) Granularity() Granularity { return PerQuery }

// HigherIsBetter implements Metric.
func (m *GroupRMSE) HigherIsBetter() bool { return false }

// Eval implements Metric over the group range [begin, end).
func (m *GroupRMSE) Eval(
	approx [][]float64,
	target, weights []float32,
	groups []dataset.GroupInfo,
	begin, end int,
	pool *parallel.Pool,
) (Holder, error) {
	if len(approx) == 0 {
		return Holder{}, ErrNoOutput
	}

	if end > len(groups) {
		return Holder{}, fmt.Errorf("group range [%d, %d) exceeds %d groups", begin, end, len(groups))
	}

	out := approx[0]
	partials := makePartials(pool.Workers())

	pool.ForChunks(begin, end, func(chunk, lo, hi int) {
		for g := lo; g < hi; g++ {
			sumErr, sumW := groupShiftedError(out, target, weights, groups[g])
			partials[chunk].Stats[0] += sumErr
			partials[chunk].Stats[1] += sumW
		}
	})

	return reducePartials(partials), nil
}

// Merge implements Metric.
func (m *GroupRMSE) Merge(a, b Holder) Holder { return mergeByAdd(a, b) }

// Finalize implements Metric.
func (m *GroupRMSE) Finalize(h Holder) float64 {
	if len(h.Stats) < statCount || h.Stats[1] == 0 {
		return 0
	}

	return math.Sqrt(h.Stats[0] / h.Stats[1])
}

// groupShiftedError computes sum w*(residual - bestShift)^2 and sum w for one
// group, where bestShift is the weighted mean residual within the group.
func groupShiftedError(out []float64, target, weights []float32, group dataset.GroupInfo) (sumErr, sumW float64) {
	var residualSum float64

	for i := group.Begin; i < group.End; i++ {
		w := float64(weights[i])
		residualSum += w * (float64(target[i]) - out[i])
		sumW += w
	}

	if sumW == 0 {
		return 0, 0
	}

	shift := residualSum / sumW

	for i := group.Begin; i < group.End; i++ {
		diff := float64(target[i]) - out[i] - shift
		sumErr += float64(weights[i]) * diff * diff
	}

	return sumErr, sumW
}

// weightedErrorSum fans the document range out across the pool, accumulating
// sum w*errFn(target-approx) and sum w into a two-stat holder.
func weightedErrorSum(
	out []float64,
	target, weights []float32,
	begin, end int,
	pool *parallel.Pool,
	errFn func(diff float64) float64,
) Holder {
	partials := makePartials(pool.Workers())

	pool.ForChunks(begin, end, func(chunk, lo, hi int) {
		for i := lo; i < hi; i++ {
			w := float64(weights[i])
			partials[chunk].Stats[0] += w * errFn(float64(target[i])-out[i])
			partials[chunk].Stats[1] += w
		}
	})

	return reducePartials(partials)
}

func makePartials(n int) []Holder {
	partials := make([]Holder, n)
	for i := range partials {
		partials[i].Stats = make([]float64, statCount)
	}

	return partials
}

func reducePartials(partials []Holder) Holder {
	result := Holder{Stats: make([]float64, statCount)}
	for i := range partials {
		result.Add(partials[i])
	}

	return result
}
