package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DashboardBackend collects per-metric score series and renders a single
// line chart page on Close.
type DashboardBackend struct {
	path   string
	token  string
	order  []string
	series map[string][]opts.LineData
	iters  []int
}

// NewDashboardBackend creates a dashboard backend rendering to path.
func NewDashboardBackend(path, token string) *DashboardBackend {
	return &DashboardBackend{
		path:   path,
		token:  token,
		series: make(map[string][]opts.LineData),
	}
}

// OutputMetric implements Backend.
func (b *DashboardBackend) OutputMetric(iteration int, name string, value float64) error {
	if _, ok := b.series[name]; !ok {
		b.order = append(b.order, name)
	}

	b.series[name] = append(b.series[name], opts.LineData{Value: value})

	if len(b.iters) == 0 || b.iters[len(b.iters)-1] != iteration {
		b.iters = append(b.iters, iteration)
	}

	return nil
}

// Close implements Backend: renders the chart page.
func (b *DashboardBackend) Close() error {
	labels := make([]string, len(b.iters))
	for i, iter := range b.iters {
		labels[i] = strconv.Itoa(iter)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Metric scores by iteration",
			Subtitle: b.token,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score"}),
	)
	line.SetXAxis(labels)

	for _, name := range b.order {
		line.AddSeries(name, b.series[name],
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	f, createErr := os.Create(b.path)
	if createErr != nil {
		return fmt.Errorf("create dashboard: %w", createErr)
	}

	renderErr := line.Render(f)

	closeErr := f.Close()

	if renderErr != nil {
		return fmt.Errorf("render dashboard: %w", renderErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close dashboard: %w", closeErr)
	}

	return nil
}
