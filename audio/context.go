package audio

import (
	"context"
	"sync"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/metrics"
)

// Backend produces sound. It is owned by a ContextManager and must not be
// used after Close.
type Backend interface {
	StartTone(freq, gain float64) error
	UpdateTone(freq, gain float64) error
	StopTone() error
	PlaySample(ref string, gain float64) error
	Close() error
}

// BackendFactory builds a fresh backend.
type BackendFactory func(ctx context.Context) (Backend, error)

// ContextManager owns the process-wide shared backend. It is built lazily
// on first use, torn down by Close and rebuilt by the next Acquire.
type ContextManager struct {
	mu         sync.Mutex
	factory    BackendFactory
	current    Backend
	generation int
	metrics    *metrics.Recorder
	logger     logging.Logger
}

// NewContextManager creates a manager with nothing built yet.
func NewContextManager(factory BackendFactory, rec *metrics.Recorder, logger logging.Logger) *ContextManager {
	return &ContextManager{
		factory: factory,
		metrics: rec,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "audio_context",
		}),
	}
}

// Acquire returns the live backend and its generation, building one if the
// previous was closed or never built.
func (m *ContextManager) Acquire(ctx context.Context) (Backend, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, m.generation, nil
	}
	if m.factory == nil {
		return nil, 0, ErrNoBackend
	}

	b, err := m.factory(ctx)
	if err != nil {
		m.logger.Error(err, "Failed to build audio context", logging.Fields{"function": "Acquire"})
		return nil, 0, err
	}
	m.current = b
	m.generation++
	m.metrics.ContextBuilt()

	m.logger.Debug("Audio context built", logging.Fields{
		"function":   "Acquire",
		"generation": m.generation,
	})
	return b, m.generation, nil
}

// Live reports whether a backend is currently built.
func (m *ContextManager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Close tears the shared backend down. Closing twice is a no-op.
func (m *ContextManager) Close() error {
	m.mu.Lock()
	b := m.current
	m.current = nil
	m.mu.Unlock()

	if b == nil {
		return nil
	}
	if err := b.Close(); err != nil {
		m.logger.Warn("Audio context close failed", logging.Fields{
			"function": "Close",
			"error":    err.Error(),
		})
		return err
	}
	return nil
}
