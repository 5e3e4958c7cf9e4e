package plot

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// ErrInconsistentBaseline is returned when some dataset parts carry baseline
// output and others do not. Mixing the two would silently skew accumulation.
var ErrInconsistentBaseline = errors.New("inconsistent baseline specification between dataset parts")

// initApproxBuffer allocates a running output buffer ([dim][doc]) spanning
// all parts. When useBaseline is set and the parts carry baseline output, the
// buffer starts from the concatenated baselines; otherwise it starts at zero.
// Baseline presence must agree across parts.
func initApproxBuffer(dim int, parts []dataset.Part, useBaseline bool) ([][]float64, error) {
	hasBaseline := false

	if useBaseline && len(parts) > 0 {
		hasBaseline = parts[0].HasBaseline()

		for i := 1; i < len(parts); i++ {
			if parts[i].HasBaseline() != hasBaseline {
				return nil, fmt.Errorf("%w: part 0 baseline=%v, part %d baseline=%v",
					ErrInconsistentBaseline, hasBaseline, i, parts[i].HasBaseline())
			}
		}
	}

	docCount := dataset.TotalDocCount(parts)

	buf := make([][]float64, dim)
	for d := range buf {
		buf[d] = make([]float64, 0, docCount)

		if hasBaseline {
			for p := range parts {
				buf[d] = append(buf[d], parts[p].Baseline[d]...)
			}
		} else {
			buf[d] = buf[d][:docCount]
		}
	}

	return buf, nil
}

// appendApprox adds the delta matrix into dst elementwise, placing the
// delta's documents at dstStartDoc. Parallel across documents.
func appendApprox(pool *parallel.Pool, delta, dst [][]float64, dstStartDoc int) {
	if len(delta) == 0 {
		return
	}

	docCount := len(delta[0])

	for dim := range delta {
		src := delta[dim]
		out := dst[dim]

		pool.For(docCount, func(i int) {
			out[dstStartDoc+i] += src[i]
		})
	}
}
