package audio

import (
	"context"

	"github.com/RyanBlaney/melodraw/logging"
)

// LogBackend is a Backend that only logs what it would play. It backs the
// CLI when no sound device is wired in.
type LogBackend struct {
	logger logging.Logger
}

// NewLogBackendFactory returns a factory producing LogBackends.
func NewLogBackendFactory(logger logging.Logger) BackendFactory {
	logger = logging.OrGlobal(logger).WithFields(logging.Fields{"component": "log_backend"})
	return func(ctx context.Context) (Backend, error) {
		return &LogBackend{logger: logger.WithContext(ctx)}, nil
	}
}

func (l *LogBackend) StartTone(freq, gain float64) error {
	l.logger.Info("Tone started", logging.Fields{"freq": freq, "gain": gain})
	return nil
}

func (l *LogBackend) UpdateTone(freq, gain float64) error {
	l.logger.Info("Tone updated", logging.Fields{"freq": freq, "gain": gain})
	return nil
}

func (l *LogBackend) StopTone() error {
	l.logger.Info("Tone stopped")
	return nil
}

func (l *LogBackend) PlaySample(ref string, gain float64) error {
	l.logger.Info("Sample played", logging.Fields{"sample": ref, "gain": gain})
	return nil
}

func (l *LogBackend) Close() error {
	l.logger.Debug("Backend closed")
	return nil
}
