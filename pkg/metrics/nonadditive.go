package metrics

import (
	"sort"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// AUC is the non-additive per-object area under the ROC curve for binary
// targets (target > 0 is positive). It needs the complete output vector:
// ranks depend on every document, so partial results cannot be merged.
type AUC struct{}

// NewAUC creates an AUC metric.
func NewAUC() *AUC { return &AUC{} }

// Description implements Metric.
func (m *AUC) Description() string { return "AUC" }

// IsAdditive implements Metric.
func (m *AUC) IsAdditive() bool { return false }

// Granularity implements Metric.
func (m *AUC) Granularity() Granularity { return PerObject }

// HigherIsBetter implements Metric.
func (m *AUC) HigherIsBetter() bool { return true }

// Eval implements Metric over the full document range [begin, end).
func (m *AUC) Eval(
	approx [][]float64,
	target, weights []float32,
	_ []dataset.GroupInfo,
	begin, end int,
	_ *parallel.Pool,
) (Holder, error) {
	if len(approx) == 0 {
		return Holder{}, ErrNoOutput
	}

	out := approx[0]

	order := make([]int, 0, end-begin)
	for i := begin; i < end; i++ {
		order = append(order, i)
	}

	sort.Slice(order, func(a, b int) bool {
		return out[order[a]] < out[order[b]]
	})

	var num, cumNeg, totalPos, totalNeg float64

	for lo := 0; lo < len(order); {
		hi := lo
		for hi < len(order) && out[order[hi]] == out[order[lo]] {
			hi++
		}

		var tiePos, tieNeg float64

		for _, idx := range order[lo:hi] {
			w := float64(weights[idx])
			if target[idx] > 0 {
				tiePos += w
			} else {
				tieNeg += w
			}
		}

		// Ties contribute half a concordant pair each.
		num += tiePos * (cumNeg + tieNeg/2)
		cumNeg += tieNeg
		totalPos += tiePos
		totalNeg += tieNeg
		lo = hi
	}

	return Holder{Stats: []float64{num, totalPos * totalNeg}}, nil
}

// Merge implements Metric. Non-additive results are computed whole, so merge
// just keeps the non-empty operand.
func (m *AUC) Merge(a, b Holder) Holder {
	if len(b.Stats) == 0 {
		return a
	}

	return b
}

// Finalize implements Metric.
func (m *AUC) Finalize(h Holder) float64 {
	if len(h.Stats) < statCount || h.Stats[1] == 0 {
		return 0
	}

	return h.Stats[0] / h.Stats[1]
}

// MedianAE is the non-additive per-object median absolute error. The median
// of a union is not a function of sub-range medians, hence non-additive.
type MedianAE struct{}

// NewMedianAE creates a MedianAE metric.
func NewMedianAE() *MedianAE { return &MedianAE{} }

// Description implements Metric.
func (m *MedianAE) Description() string { return "MedianAE" }

// IsAdditive implements Metric.
func (m *MedianAE) IsAdditive() bool { return false }

// Granularity implements Metric.
func (m *MedianAE) Granularity() Granularity { return PerObject }

// HigherIsBetter implements Metric.
func (m *MedianAE) HigherIsBetter() bool { return false }

// Eval implements Metric over the full document range [begin, end).
func (m *MedianAE) Eval(
	approx [][]float64,
	target, _ []float32,
	_ []dataset.GroupInfo,
	begin, end int,
	_ *parallel.Pool,
) (Holder, error) {
	if len(approx) == 0 {
		return Holder{}, ErrNoOutput
	}

	out := approx[0]

	absErrors := make([]float64, 0, end-begin)
	for i := begin; i < end; i++ {
		diff := float64(target[i]) - out[i]
		if diff < 0 {
			diff = -diff
		}

		absErrors = append(absErrors, diff)
	}

	if len(absErrors) == 0 {
		return Holder{Stats: []float64{0, 0}}, nil
	}

	sort.Float64s(absErrors)

	mid := len(absErrors) / 2
	median := absErrors[mid]

	if len(absErrors)%2 == 0 {
		median = (absErrors[mid-1] + absErrors[mid]) / 2
	}

	return Holder{Stats: []float64{median, 1}}, nil
}

// Merge implements Metric. Non-additive results are computed whole, so merge
// just keeps the non-empty operand.
func (m *MedianAE) Merge(a, b Holder) Holder {
	if len(b.Stats) == 0 {
		return a
	}

	return b
}

// Finalize implements Metric.
func (m *MedianAE) Finalize(h Holder) float64 {
	if len(h.Stats) == 0 {
		return 0
	}

	return h.Stats[0]
}
