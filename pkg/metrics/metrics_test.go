package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

func testPool() *parallel.Pool { return parallel.New(2) }

func unitWeights(n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = 1
	}

	return w
}

func TestGranularity_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "per-object", PerObject.String())
	assert.Equal(t, "per-query", PerQuery.String())
	assert.Equal(t, "pairwise", Pairwise.String())
}

func TestHolder_AddAdoptsShape(t *testing.T) {
	t.Parallel()

	var h Holder

	h.Add(Holder{Stats: []float64{2, 3}})
	h.Add(Holder{Stats: []float64{1, 1}})

	assert.Equal(t, []float64{3, 4}, h.Stats)
}

func TestRMSE_KnownValue(t *testing.T) {
	t.Parallel()

	m := NewRMSE()
	approx := [][]float64{{1, 2, 3, 4}}
	target := []float32{1, 1, 1, 1}
	weights := unitWeights(4)

	holder, err := m.Eval(approx, target, weights, nil, 0, 4, testPool())
	require.NoError(t, err)

	// Squared errors 0, 1, 4, 9 over weight 4.
	assert.InDelta(t, math.Sqrt(14.0/4.0), m.Finalize(holder), 1e-12)
}

func TestAdditiveMetrics_SplitMergeEqualsWhole(t *testing.T) {
	t.Parallel()

	const n = 57

	approx := [][]float64{make([]float64, n)}
	target := make([]float32, n)
	weights := make([]float32, n)

	for i := 0; i < n; i++ {
		approx[0][i] = float64(i%13) * 0.25
		target[i] = float32(i % 7)
		weights[i] = 1 + float32(i%3)
	}

	pool := testPool()

	for _, m := range []Metric{NewRMSE(), NewMAE()} {
		whole, err := m.Eval(approx, target, weights, nil, 0, n, pool)
		require.NoError(t, err)

		splits := []int{0, 9, 20, 21, 40, n}

		var merged Holder
		for s := 0; s+1 < len(splits); s++ {
			part, evalErr := m.Eval(approx, target, weights, nil, splits[s], splits[s+1], pool)
			require.NoError(t, evalErr)

			merged = m.Merge(merged, part)
		}

		assert.InDelta(t, m.Finalize(whole), m.Finalize(merged), 1e-12, m.Description())
	}
}

func TestGroupRMSE_SplitMergeEqualsWhole(t *testing.T) {
	t.Parallel()

	approx := [][]float64{{0.5, 1.5, 0.2, 2.0, 1.0, 0.0}}
	target := []float32{1, 2, 0, 3, 1, 0}
	weights := unitWeights(6)
	groups := []dataset.GroupInfo{{Begin: 0, End: 2}, {Begin: 2, End: 4}, {Begin: 4, End: 6}}

	m := NewGroupRMSE()
	pool := testPool()

	whole, err := m.Eval(approx, target, weights, groups, 0, len(groups), pool)
	require.NoError(t, err)

	left, err := m.Eval(approx, target, weights, groups, 0, 1, pool)
	require.NoError(t, err)

	right, err := m.Eval(approx, target, weights, groups, 1, 3, pool)
	require.NoError(t, err)

	merged := m.Merge(left, right)
	assert.InDelta(t, m.Finalize(whole), m.Finalize(merged), 1e-12)
}

func TestGroupRMSE_GroupRangeOutOfBounds(t *testing.T) {
	t.Parallel()

	m := NewGroupRMSE()

	_, err := m.Eval([][]float64{{0}}, []float32{0}, unitWeights(1), nil, 0, 1, testPool())
	require.Error(t, err)
}

func TestAUC_PerfectAndInvertedRanking(t *testing.T) {
	t.Parallel()

	m := NewAUC()
	target := []float32{0, 0, 1, 1}
	weights := unitWeights(4)
	pool := testPool()

	perfect, err := m.Eval([][]float64{{0.1, 0.2, 0.8, 0.9}}, target, weights, nil, 0, 4, pool)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Finalize(perfect), 1e-12)

	inverted, err := m.Eval([][]float64{{0.9, 0.8, 0.2, 0.1}}, target, weights, nil, 0, 4, pool)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.Finalize(inverted), 1e-12)
}

func TestAUC_TiesCountHalf(t *testing.T) {
	t.Parallel()

	m := NewAUC()

	// All outputs equal: AUC must be 0.5.
	holder, err := m.Eval([][]float64{{1, 1, 1, 1}}, []float32{0, 1, 0, 1}, unitWeights(4), nil, 0, 4, testPool())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Finalize(holder), 1e-12)
}

func TestMedianAE_OddAndEven(t *testing.T) {
	t.Parallel()

	m := NewMedianAE()
	pool := testPool()

	odd, err := m.Eval([][]float64{{0, 0, 0}}, []float32{1, 2, 3}, unitWeights(3), nil, 0, 3, pool)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Finalize(odd), 1e-12)

	even, err := m.Eval([][]float64{{0, 0, 0, 0}}, []float32{1, 2, 3, 4}, unitWeights(4), nil, 0, 4, pool)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, m.Finalize(even), 1e-12)
}

func TestMetrics_EmptyOutputRejected(t *testing.T) {
	t.Parallel()

	for _, m := range []Metric{NewRMSE(), NewMAE(), NewGroupRMSE(), NewAUC(), NewMedianAE()} {
		_, err := m.Eval(nil, nil, nil, nil, 0, 0, testPool())
		require.ErrorIs(t, err, ErrNoOutput, m.Description())
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	parsed, err := ParseList([]string{"RMSE", "AUC", "MedianAE", "MAE", "GroupRMSE"})
	require.NoError(t, err)
	require.Len(t, parsed, 5)
	assert.Equal(t, "RMSE", parsed[0].Description())
	assert.False(t, parsed[1].IsAdditive())

	_, err = ParseList([]string{"NDCG"})
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestAdditivityFlags(t *testing.T) {
	t.Parallel()

	assert.True(t, NewRMSE().IsAdditive())
	assert.True(t, NewMAE().IsAdditive())
	assert.True(t, NewGroupRMSE().IsAdditive())
	assert.False(t, NewAUC().IsAdditive())
	assert.False(t, NewMedianAE().IsAdditive())

	assert.Equal(t, PerQuery, NewGroupRMSE().Granularity())
	assert.Equal(t, PerObject, NewAUC().Granularity())

	assert.True(t, NewAUC().HigherIsBetter())
	assert.False(t, NewRMSE().HigherIsBetter())
	assert.False(t, NewMAE().HigherIsBetter())
	assert.False(t, NewGroupRMSE().HigherIsBetter())
	assert.False(t, NewMedianAE().HigherIsBetter())
}
