// Package metrics provides Prometheus metrics for key detection and melody playback.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the melodraw collectors. A nil *Recorder is valid and
// records nothing, so components can take one optionally.
type Recorder struct {
	namespace string
	registry  prometheus.Registerer
	gatherer  prometheus.Gatherer
	buckets   []float64

	detections        *prometheus.CounterVec
	windowsDropped    prometheus.Counter
	detectionDuration prometheus.Histogram
	notesScheduled    prometheus.Counter
	notesSkipped      prometheus.Counter
	runsCancelled     prometheus.Counter
	triggers          *prometheus.CounterVec
	contextRebuilds   prometheus.Counter
}

// NewRecorder builds and registers all collectors. Without WithRegistry a
// private registry is used so tests can build as many recorders as they like.
func NewRecorder(opts ...Option) (*Recorder, error) {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		namespace: "melodraw",
		registry:  reg,
		gatherer:  reg,
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "keys",
		Name:      "detections_total",
		Help:      "Key detections by resulting key name.",
	}, []string{"key"})
	r.windowsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "keys",
		Name:      "chroma_windows_dropped_total",
		Help:      "Chroma windows discarded for being invalid.",
	})
	r.detectionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "keys",
		Name:      "detection_duration_seconds",
		Help:      "Wall time of a full key detection.",
		Buckets:   r.buckets,
	})
	r.notesScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "playback",
		Name:      "notes_scheduled_total",
		Help:      "Notes scheduled for playback.",
	})
	r.notesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "playback",
		Name:      "notes_skipped_total",
		Help:      "Notes skipped for preceding the reference time.",
	})
	r.runsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "playback",
		Name:      "runs_cancelled_total",
		Help:      "Playback runs cancelled before completion.",
	})
	r.triggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "playback",
		Name:      "triggers_total",
		Help:      "Audio trigger calls by action.",
	}, []string{"action"})
	r.contextRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "audio",
		Name:      "context_builds_total",
		Help:      "Shared audio contexts constructed.",
	})

	for _, c := range []prometheus.Collector{
		r.detections, r.windowsDropped, r.detectionDuration,
		r.notesScheduled, r.notesSkipped, r.runsCancelled, r.triggers, r.contextRebuilds,
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Gatherer exposes the registry for an HTTP handler.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

func (r *Recorder) KeyDetected(key string, dropped int, took time.Duration) {
	if r == nil {
		return
	}
	r.detections.WithLabelValues(key).Inc()
	r.windowsDropped.Add(float64(dropped))
	r.detectionDuration.Observe(took.Seconds())
}

func (r *Recorder) NotesScheduled(scheduled, skipped int) {
	if r == nil {
		return
	}
	r.notesScheduled.Add(float64(scheduled))
	r.notesSkipped.Add(float64(skipped))
}

func (r *Recorder) RunCancelled() {
	if r == nil {
		return
	}
	r.runsCancelled.Inc()
}

func (r *Recorder) Trigger(action string) {
	if r == nil {
		return
	}
	r.triggers.WithLabelValues(action).Inc()
}

func (r *Recorder) ContextBuilt() {
	if r == nil {
		return
	}
	r.contextRebuilds.Inc()
}
