// Package plot implements the incremental metrics-plot calculator: metric
// scores of a staged additive model at a chosen subsequence of stages,
// computed from per-checkpoint forward-pass deltas instead of full
// recomputation, with disk-backed batching for non-additive metrics.
package plot

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkpoint selection.
var (
	ErrDegenerateRange = errors.New("checkpoint range is degenerate")
	ErrBadStep         = errors.New("checkpoint step must be at least 1")
)

// selectCheckpoints derives the evaluated stage indices from (first, last,
// step): first, first+step, ... clipped below last, always terminating at
// last-1. The result is strictly increasing and non-empty.
func selectCheckpoints(first, last, step int) ([]int, error) {
	if first < 0 || last <= first {
		return nil, fmt.Errorf("%w: first=%d last=%d", ErrDegenerateRange, first, last)
	}

	if step < 1 {
		return nil, fmt.Errorf("%w: step=%d", ErrBadStep, step)
	}

	// A step wider than the range leaves only the final stage.
	if step > last-first {
		return []int{last - 1}, nil
	}

	var checkpoints []int
	for stage := first; stage < last; stage += step {
		checkpoints = append(checkpoints, stage)
	}

	if checkpoints[len(checkpoints)-1] != last-1 {
		checkpoints = append(checkpoints, last-1)
	}

	return checkpoints, nil
}
