package report

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_UnknownToken(t *testing.T) {
	t.Parallel()

	logger := NewLogger()

	err := logger.OutputMetric("learn", 0, "RMSE", 1.0)
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestFileBackend_WritesTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metrics.tsv")
	backend := NewFileBackend(path, "eval")

	require.NoError(t, backend.OutputMetric(0, "RMSE", 0.5))
	require.NoError(t, backend.OutputMetric(0, "MAE", 0.25))
	require.NoError(t, backend.OutputMetric(3, "RMSE", 0.4))
	require.NoError(t, backend.OutputMetric(3, "MAE", 0.2))
	require.NoError(t, backend.Close())

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "iter\tRMSE\tMAE", lines[0])
	assert.Equal(t, "0\t0.5\t0.25", lines[1])
	assert.Equal(t, "3\t0.4\t0.2", lines[2])
}

func TestEventBackend_EmitsStructuredEvents(t *testing.T) {
	t.Parallel()

	var sb strings.Builder

	backend := NewEventBackend(slog.New(slog.NewJSONHandler(&sb, nil)), "eval")

	require.NoError(t, backend.OutputMetric(7, "AUC", 0.9))
	require.NoError(t, backend.Close())

	assert.Contains(t, sb.String(), `"metric":"AUC"`)
	assert.Contains(t, sb.String(), `"iteration":7`)
}

func TestDashboardBackend_RendersChart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dash.html")
	backend := NewDashboardBackend(path, "eval")

	require.NoError(t, backend.OutputMetric(0, "RMSE", 0.5))
	require.NoError(t, backend.OutputMetric(3, "RMSE", 0.4))
	require.NoError(t, backend.Close())

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "RMSE")
}

func TestLogger_FanOutAndClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := NewLogger()
	logger.AddBackend("eval", NewFileBackend(filepath.Join(dir, "a.tsv"), "eval"))
	logger.AddBackend("eval", NewEventBackend(slog.New(slog.NewTextHandler(io.Discard, nil)), "eval"))

	require.NoError(t, logger.OutputMetric("eval", 0, "RMSE", 1.25))
	require.NoError(t, logger.Close())

	data, readErr := os.ReadFile(filepath.Join(dir, "a.tsv"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "1.25")
}
