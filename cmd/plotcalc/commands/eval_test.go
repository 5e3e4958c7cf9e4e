package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/plotcalc/internal/config"
)

func TestBuildConfig_FlagsOverrideDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := buildConfig(evalFlags{
		modelPath:  "model.json",
		dataPath:   "data.tsv",
		metricList: []string{"RMSE", "AUC"},
		last:       50,
		step:       5,
		batchStep:  2,
		resultDir:  "out",
		saveStats:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "model.json", cfg.Model)
	assert.Equal(t, "data.tsv", cfg.Dataset)
	assert.Equal(t, []string{"RMSE", "AUC"}, cfg.Metrics)
	assert.Equal(t, 50, cfg.Last)
	assert.Equal(t, 5, cfg.Step)
	assert.Equal(t, 2, cfg.ProcessedIterationsStep)
	assert.Equal(t, "out", cfg.ResultDir)
	assert.True(t, cfg.SaveStats)

	// Unset flags keep config defaults.
	assert.Equal(t, config.DefaultTmpDir, cfg.TmpDir)
	assert.Equal(t, config.DefaultMetricsFile, cfg.MetricsFile)
}

func TestBuildConfig_ValidationSurfacesMissingInputs(t *testing.T) {
	t.Parallel()

	cfg, err := buildConfig(evalFlags{})
	require.NoError(t, err)
	require.ErrorIs(t, cfg.Validate(), config.ErrNoMetrics)
}

func TestBestCheckpoint_FollowsMetricDirection(t *testing.T) {
	t.Parallel()

	// Error metrics highlight the minimum.
	assert.Equal(t, 2, bestCheckpoint([]float64{0.5, 0.4, 0.3, 0.35}, false))

	// Ranking metrics like AUC highlight the maximum.
	assert.Equal(t, 1, bestCheckpoint([]float64{0.6, 0.9, 0.8}, true))

	// Ties keep the earliest checkpoint.
	assert.Equal(t, 0, bestCheckpoint([]float64{0.2, 0.2}, false))
}
