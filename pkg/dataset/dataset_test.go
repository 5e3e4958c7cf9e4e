package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadTSV_WithoutWeights(t *testing.T) {
	t.Parallel()

	path := writeTSV(t, "1.5\t0.1\t0.2\n2.5\t0.3\t0.4\n")

	part, err := LoadTSV(path, false)
	require.NoError(t, err)

	assert.Equal(t, 2, part.DocCount())
	assert.InDelta(t, 1.5, part.Target[0], 1e-6)
	assert.InDelta(t, 1.0, part.Weights[0], 1e-6)
	assert.InDelta(t, 0.3, part.Features[1][0], 1e-6)
	assert.False(t, part.HasBaseline())
}

func TestLoadTSV_WithWeights(t *testing.T) {
	t.Parallel()

	path := writeTSV(t, "1\t2\t3\n0\t0.5\t4\n")

	part, err := LoadTSV(path, true)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, part.Weights[0], 1e-6)
	assert.InDelta(t, 0.5, part.Weights[1], 1e-6)
	assert.Len(t, part.Features[0], 1)
}

func TestLoadTSV_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadTSV(filepath.Join(t.TempDir(), "missing.tsv"), false)
	require.Error(t, err)

	_, err = LoadTSV(writeTSV(t, ""), false)
	require.ErrorIs(t, err, ErrEmptyDataset)

	_, err = LoadTSV(writeTSV(t, "not-a-number\t1\n"), false)
	require.Error(t, err)

	_, err = LoadTSV(writeTSV(t, "1\n"), false)
	require.Error(t, err)
}

func TestTotalDocCount(t *testing.T) {
	t.Parallel()

	parts := []Part{
		{Target: make([]float32, 3)},
		{Target: make([]float32, 5)},
	}

	assert.Equal(t, 8, TotalDocCount(parts))
	assert.Equal(t, 2, (GroupInfo{Begin: 1, End: 3}).Size())
}
