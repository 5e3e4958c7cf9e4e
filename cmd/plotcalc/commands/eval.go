package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/plotcalc/internal/config"
	"github.com/Sumatoshi-tech/plotcalc/internal/plot"
	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/metrics"
	"github.com/Sumatoshi-tech/plotcalc/pkg/model"
)

type evalFlags struct {
	configPath string
	modelPath  string
	dataPath   string
	metricList []string
	first      int
	last       int
	step       int
	batchStep  int
	tmpDir     string
	resultDir  string
	saveStats  bool
	workers    int
	hasWeights bool
	verbose    bool
}

func newEvalCommand() *cobra.Command {
	var flags evalFlags

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate metrics at checkpoints of a staged model over a dataset",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runEval(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&flags.modelPath, "model", "m", "", "model JSON file")
	cmd.Flags().StringVarP(&flags.dataPath, "dataset", "d", "", "dataset TSV file")
	cmd.Flags().StringSliceVar(&flags.metricList, "metrics", nil, "metric names (RMSE, MAE, GroupRMSE, AUC, MedianAE)")
	cmd.Flags().IntVar(&flags.first, "first", 0, "first checkpoint stage")
	cmd.Flags().IntVar(&flags.last, "last", 0, "last stage exclusive (0 = stage count)")
	cmd.Flags().IntVar(&flags.step, "step", 0, "checkpoint stage step")
	cmd.Flags().IntVar(&flags.batchStep, "batch-step", 0, "non-additive batch size in checkpoints")
	cmd.Flags().StringVar(&flags.tmpDir, "tmp-dir", "", "auxiliary storage directory")
	cmd.Flags().StringVar(&flags.resultDir, "result-dir", "", "result output directory")
	cmd.Flags().BoolVar(&flags.saveStats, "save-stats", false, "write raw partial statistics")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "worker count (0 = all CPUs)")
	cmd.Flags().BoolVar(&flags.hasWeights, "has-weights", false, "dataset second column holds weights")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func runEval(flags evalFlags) error {
	cfg, cfgErr := buildConfig(flags)
	if cfgErr != nil {
		return cfgErr
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return validateErr
	}

	predictor, modelErr := model.LoadJSON(cfg.Model)
	if modelErr != nil {
		return modelErr
	}

	part, dataErr := dataset.LoadTSV(cfg.Dataset, cfg.HasWeights)
	if dataErr != nil {
		return dataErr
	}

	metricList, metricsErr := metrics.ParseList(cfg.Metrics)
	if metricsErr != nil {
		return metricsErr
	}

	logLevel := slog.LevelWarn
	if flags.verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	calcer, calcerErr := plot.New(predictor, metricList, plot.Params{
		First:                   cfg.First,
		Last:                    cfg.Last,
		Step:                    cfg.Step,
		ProcessedIterationsStep: cfg.ProcessedIterationsStep,
		TmpDir:                  cfg.TmpDir,
		Workers:                 cfg.Workers,
		Logger:                  logger,
	})
	if calcerErr != nil {
		return calcerErr
	}

	defer calcer.Close()

	runErr := runPasses(calcer, part)
	if runErr != nil {
		return runErr
	}

	saveErr := calcer.SaveResult(cfg.ResultDir, cfg.MetricsFile, true, cfg.SaveStats)
	if saveErr != nil {
		return saveErr
	}

	printScores(calcer)

	fmt.Printf("results written to %s\n", color.GreenString(cfg.ResultDir))

	return nil
}

func buildConfig(flags evalFlags) (config.Config, error) {
	cfg, loadErr := config.Load(flags.configPath)
	if loadErr != nil {
		return cfg, loadErr
	}

	if flags.modelPath != "" {
		cfg.Model = flags.modelPath
	}

	if flags.dataPath != "" {
		cfg.Dataset = flags.dataPath
	}

	if len(flags.metricList) > 0 {
		cfg.Metrics = flags.metricList
	}

	if flags.first > 0 {
		cfg.First = flags.first
	}

	if flags.last > 0 {
		cfg.Last = flags.last
	}

	if flags.step > 0 {
		cfg.Step = flags.step
	}

	if flags.batchStep > 0 {
		cfg.ProcessedIterationsStep = flags.batchStep
	}

	if flags.tmpDir != "" {
		cfg.TmpDir = flags.tmpDir
	}

	if flags.resultDir != "" {
		cfg.ResultDir = flags.resultDir
	}

	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}

	if flags.saveStats {
		cfg.SaveStats = true
	}

	if flags.hasWeights {
		cfg.HasWeights = true
	}

	return cfg, nil
}

// runPasses drives the additive pass and the batched non-additive passes
// over the dataset until every checkpoint is finalized.
func runPasses(calcer *plot.Calcer, part *dataset.Part) error {
	if calcer.HasAdditiveMetric() {
		addErr := calcer.ProcessAdditive(part)
		if addErr != nil {
			return addErr
		}
	}

	if !calcer.HasNonAdditiveMetric() {
		return nil
	}

	for !calcer.AllProcessed() {
		processErr := calcer.ProcessNonAdditive(part)
		if processErr != nil {
			return processErr
		}

		finishErr := calcer.FinishNonAdditiveBatch()
		if finishErr != nil {
			return finishErr
		}
	}

	return nil
}

func printScores(calcer *plot.Calcer) {
	ordered := calcer.Metrics()
	scores := calcer.Scores()
	iterations := calcer.Iterations()

	header := table.Row{"iter"}
	best := make([]int, len(ordered))

	for mIdx, m := range ordered {
		header = append(header, m.Description())
		best[mIdx] = bestCheckpoint(scores[mIdx], m.HigherIsBetter())
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)

	for i, iteration := range iterations {
		row := table.Row{strconv.Itoa(iteration)}

		for mIdx := range ordered {
			cell := fmt.Sprintf("%.6f", scores[mIdx][i])
			if i == best[mIdx] {
				cell = color.GreenString(cell)
			}

			row = append(row, cell)
		}

		t.AppendRow(row)
	}

	t.Render()
}

// bestCheckpoint returns the index of the best score in the series, following
// the metric's optimization direction.
func bestCheckpoint(scores []float64, higherIsBetter bool) int {
	best := 0

	for i, score := range scores {
		if higherIsBetter && score > scores[best] || !higherIsBetter && score < scores[best] {
			best = i
		}
	}

	return best
}
