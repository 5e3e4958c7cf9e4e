// Package dataset defines the evaluation-side view of a dataset: targets,
// weights, optional baseline output, and group structure. Feature loading and
// preprocessing live with the caller; the evaluator only reads these fields.
package dataset

// GroupInfo describes one contiguous document range belonging to a single
// query/group. Ranges are half-open [Begin, End) and must not overlap.
type GroupInfo struct {
	Begin int
	End   int
}

// Size returns the number of documents in the group.
func (g GroupInfo) Size() int {
	return g.End - g.Begin
}

// Part is one partition of a dataset. Baseline, when present, holds a
// precomputed starting output per dimension ([dim][doc]) that incremental
// accumulation starts from instead of zero.
type Part struct {
	Features [][]float32 // [doc][feature]
	Target   []float32
	Weights  []float32
	Baseline [][]float64 // [dim][doc], optional
	Groups   []GroupInfo
}

// DocCount returns the number of documents in the part.
func (p *Part) DocCount() int {
	return len(p.Target)
}

// HasBaseline reports whether the part carries baseline output.
func (p *Part) HasBaseline() bool {
	return len(p.Baseline) > 0 && len(p.Baseline[0]) > 0
}

// TotalDocCount sums document counts over all parts.
func TotalDocCount(parts []Part) int {
	total := 0
	for i := range parts {
		total += parts[i].DocCount()
	}

	return total
}
