// Package config holds the construction parameters of an evaluation run.
// Field tags use mapstructure for viper unmarshalling.
package config

import (
	"errors"
	"fmt"
)

// Defaults for optional parameters.
const (
	DefaultStep        = 1
	DefaultMetricsFile = "metrics.tsv"
	DefaultTmpDir      = "plotcalc_tmp"
	DefaultResultDir   = "plotcalc_results"
)

// Sentinel validation errors.
var (
	ErrNoMetrics = errors.New("at least one metric is required")
	ErrNoModel   = errors.New("model path is required")
	ErrNoDataset = errors.New("dataset path is required")
	ErrBadRange  = errors.New("checkpoint range is invalid")
)

// Config is the top-level configuration for an evaluation run.
type Config struct {
	First                   int      `mapstructure:"first"`
	Last                    int      `mapstructure:"last"`
	Step                    int      `mapstructure:"step"`
	ProcessedIterationsStep int      `mapstructure:"processed_iterations_step"`
	TmpDir                  string   `mapstructure:"tmp_dir"`
	ResultDir               string   `mapstructure:"result_dir"`
	MetricsFile             string   `mapstructure:"metrics_file"`
	SaveStats               bool     `mapstructure:"save_stats"`
	Workers                 int      `mapstructure:"workers"`
	Metrics                 []string `mapstructure:"metrics"`
	Model                   string   `mapstructure:"model"`
	Dataset                 string   `mapstructure:"dataset"`
	HasWeights              bool     `mapstructure:"has_weights"`
}

// Default returns a Config with all optional fields filled in.
func Default() Config {
	return Config{
		Step:        DefaultStep,
		TmpDir:      DefaultTmpDir,
		ResultDir:   DefaultResultDir,
		MetricsFile: DefaultMetricsFile,
	}
}

// Validate checks the configuration for errors that construction would only
// surface later.
func (c *Config) Validate() error {
	if len(c.Metrics) == 0 {
		return ErrNoMetrics
	}

	if c.Model == "" {
		return ErrNoModel
	}

	if c.Dataset == "" {
		return ErrNoDataset
	}

	if c.First < 0 || c.Step < 1 || (c.Last != 0 && c.Last <= c.First) {
		return fmt.Errorf("%w: first=%d last=%d step=%d", ErrBadRange, c.First, c.Last, c.Step)
	}

	return nil
}
