package report

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
)

// FileBackend buffers scores and writes a tab-separated metric log on Close:
// a header row of metric names, then one row per iteration.
type FileBackend struct {
	path    string
	token   string
	names   []string
	iters   []int
	rows    map[int]map[string]float64
}

// NewFileBackend creates a metric-file backend writing to path.
func NewFileBackend(path, token string) *FileBackend {
	return &FileBackend{
		path:  path,
		token: token,
		rows:  make(map[int]map[string]float64),
	}
}

// OutputMetric implements Backend.
func (b *FileBackend) OutputMetric(iteration int, name string, value float64) error {
	if !slices.Contains(b.names, name) {
		b.names = append(b.names, name)
	}

	row, ok := b.rows[iteration]
	if !ok {
		row = make(map[string]float64)
		b.rows[iteration] = row
		b.iters = append(b.iters, iteration)
	}

	row[name] = value

	return nil
}

// Close implements Backend: writes the buffered table.
func (b *FileBackend) Close() error {
	var sb strings.Builder

	sb.WriteString("iter")

	for _, name := range b.names {
		sb.WriteByte('\t')
		sb.WriteString(name)
	}

	sb.WriteByte('\n')

	for _, iter := range b.iters {
		sb.WriteString(strconv.Itoa(iter))

		for _, name := range b.names {
			sb.WriteByte('\t')
			sb.WriteString(strconv.FormatFloat(b.rows[iter][name], 'g', -1, 64))
		}

		sb.WriteByte('\n')
	}

	writeErr := os.WriteFile(b.path, []byte(sb.String()), 0o600)
	if writeErr != nil {
		return fmt.Errorf("write metric log: %w", writeErr)
	}

	return nil
}

// EventBackend emits one structured log event per score.
type EventBackend struct {
	log   *slog.Logger
	token string
}

// NewEventBackend creates a structured-event backend.
func NewEventBackend(logger *slog.Logger, token string) *EventBackend {
	return &EventBackend{log: logger, token: token}
}

// OutputMetric implements Backend.
func (b *EventBackend) OutputMetric(iteration int, name string, value float64) error {
	b.log.Info("metric score",
		slog.String("token", b.token),
		slog.Int("iteration", iteration),
		slog.String("metric", name),
		slog.Float64("value", value))

	return nil
}

// Close implements Backend.
func (b *EventBackend) Close() error { return nil }
