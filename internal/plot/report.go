package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/plotcalc/internal/report"
	"github.com/Sumatoshi-tech/plotcalc/pkg/metrics"
)

// evalToken tags all emitted scores with the evaluation dataset.
const evalToken = "eval_dataset"

// partialStatsFile holds raw pre-finalization accumulator state for later
// re-aggregation.
const partialStatsFile = "partial_stats.tsv"

// SaveResult finalizes scores and writes them through the report backends:
// the metric file (when saveMetrics is set), the structured event log, and
// the dashboard page. When saveStats is set, raw partial statistics are
// written alongside.
func (c *Calcer) SaveResult(resultDir, metricsFile string, saveMetrics, saveStats bool) error {
	if resultDir != "" {
		mkdirErr := os.MkdirAll(resultDir, storeDirPerm)
		if mkdirErr != nil {
			return fmt.Errorf("create result dir: %w", mkdirErr)
		}
	}

	if saveStats {
		statsErr := c.writePartialStats(filepath.Join(resultDir, partialStatsFile))
		if statsErr != nil {
			return statsErr
		}
	}

	ordered := c.Metrics()
	scores := c.Scores()

	logger := report.NewLogger()

	if saveMetrics {
		logger.AddBackend(evalToken, report.NewFileBackend(filepath.Join(resultDir, metricsFile), evalToken))
	}

	logger.AddBackend(evalToken, report.NewEventBackend(c.log, evalToken))
	logger.AddBackend(evalToken, report.NewDashboardBackend(filepath.Join(resultDir, evalToken+".html"), evalToken))

	for i, iteration := range c.iterations {
		for mIdx, metric := range ordered {
			outputErr := logger.OutputMetric(evalToken, iteration, metric.Description(), scores[mIdx][i])
			if outputErr != nil {
				return outputErr
			}
		}
	}

	return logger.Close()
}

// writePartialStats writes one row per checkpoint of every metric's raw
// accumulator fields, tab-separated, metrics in input order.
func (c *Calcer) writePartialStats(path string) error {
	ordered := c.Metrics()

	var sb strings.Builder

	sb.WriteString("iter")

	for mIdx, metric := range ordered {
		width := c.holderWidth(mIdx)
		for s := 0; s < width; s++ {
			sb.WriteByte('\t')
			sb.WriteString(fmt.Sprintf("%s:stat%d", metric.Description(), s))
		}
	}

	sb.WriteByte('\n')

	for i, iteration := range c.iterations {
		sb.WriteString(strconv.Itoa(iteration))

		for mIdx := range ordered {
			holder := c.holderAt(mIdx, i)
			width := c.holderWidth(mIdx)

			for s := 0; s < width; s++ {
				sb.WriteByte('\t')

				value := 0.0
				if s < len(holder.Stats) {
					value = holder.Stats[s]
				}

				sb.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
			}
		}

		sb.WriteByte('\n')
	}

	writeErr := os.WriteFile(path, []byte(sb.String()), 0o600)
	if writeErr != nil {
		return fmt.Errorf("write partial stats: %w", writeErr)
	}

	return nil
}

// holderAt returns the raw accumulator for a metric (by input order index)
// at a checkpoint.
func (c *Calcer) holderAt(inputIdx, checkpoint int) metrics.Holder {
	for m, orig := range c.additiveIdx {
		if orig == inputIdx {
			return c.additivePlots[m][checkpoint]
		}
	}

	for m, orig := range c.nonAdditiveIdx {
		if orig == inputIdx {
			return c.nonAdditivePlots[m][checkpoint]
		}
	}

	return metrics.Holder{}
}

// holderWidth returns the widest accumulator seen for a metric across
// checkpoints, so untouched slots still get their columns.
func (c *Calcer) holderWidth(inputIdx int) int {
	width := 0

	for i := range c.iterations {
		if n := len(c.holderAt(inputIdx, i).Stats); n > width {
			width = n
		}
	}

	return width
}
