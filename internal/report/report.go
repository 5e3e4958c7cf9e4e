// Package report adapts final per-checkpoint scores to logging backends:
// a delimited metric file, a structured event log, and an HTML dashboard.
package report

import (
	"errors"
	"fmt"
)

// ErrUnknownToken is returned when a metric is emitted for a token with no
// registered backends.
var ErrUnknownToken = errors.New("no backends registered for token")

// Backend receives one score per metric per iteration and flushes any
// buffered output on Close.
type Backend interface {
	OutputMetric(iteration int, name string, value float64) error
	Close() error
}

// Logger fans metric scores out to the backends registered per dataset token.
type Logger struct {
	backends map[string][]Backend
}

// NewLogger creates an empty logger.
func NewLogger() *Logger {
	return &Logger{backends: make(map[string][]Backend)}
}

// AddBackend registers a backend for a dataset token.
func (l *Logger) AddBackend(token string, b Backend) {
	l.backends[token] = append(l.backends[token], b)
}

// OutputMetric emits one score to every backend of the token.
func (l *Logger) OutputMetric(token string, iteration int, name string, value float64) error {
	backends, ok := l.backends[token]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}

	for _, b := range backends {
		outputErr := b.OutputMetric(iteration, name, value)
		if outputErr != nil {
			return fmt.Errorf("backend output for %q: %w", token, outputErr)
		}
	}

	return nil
}

// Close closes every backend, reporting the first failure.
func (l *Logger) Close() error {
	var firstErr error

	for token, backends := range l.backends {
		for _, b := range backends {
			closeErr := b.Close()
			if closeErr != nil && firstErr == nil {
				firstErr = fmt.Errorf("close backend for %q: %w", token, closeErr)
			}
		}
	}

	return firstErr
}
