package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/metrics"
)

// Action is what a trigger asks the sink to do with a note.
type Action string

const (
	ActionStart  Action = "start"
	ActionUpdate Action = "update"
	ActionStop   Action = "stop"
)

// TriggerSink produces or silences sound. The scheduler calls it with its
// lock held, so implementations must not call back into the scheduler.
type TriggerSink interface {
	Trigger(pitch string, volume float64, action Action)
}

// State of a Scheduler.
type State int

const (
	Idle State = iota
	Scheduled
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OverlapPolicy decides what Play does while earlier runs are pending.
type OverlapPolicy string

const (
	// OverlapAllow leaves earlier runs pending; both play.
	OverlapAllow OverlapPolicy = "overlap"
	// OverlapReplace stops earlier runs before scheduling the new one.
	OverlapReplace OverlapPolicy = "replace"
)

// ParseOverlapPolicy accepts "overlap", "replace" or "" (overlap).
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(s) {
	case "", OverlapAllow:
		return OverlapAllow, nil
	case OverlapReplace:
		return OverlapReplace, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// SchedulerConfig holds scheduling parameters.
type SchedulerConfig struct {
	NoteDuration time.Duration `json:"note_duration"`
	Overlap      OverlapPolicy `json:"overlap"`
}

// DefaultSchedulerConfig returns 500ms notes that may overlap across runs.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		NoteDuration: melody.DefaultNoteDuration,
		Overlap:      OverlapAllow,
	}
}

type action struct {
	kind  Action
	index int
	note  melody.NoteEvent
	delay time.Duration
	timer Timer
	fired bool
}

// Run is one Play invocation. It doubles as its cancellation token.
type Run struct {
	id        int
	actions   []*action
	started   map[int]bool
	remaining int
	skipped   int
	cancelled bool
	done      chan struct{}
}

// Done is closed when every action of the run fired or the run was stopped.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Skipped returns how many notes were timestamped before the reference.
func (r *Run) Skipped() int {
	return r.skipped
}

// Scheduler issues start and stop triggers for melodies at their relative
// offsets. After Stop returns no start of a stopped run will fire. Stops
// for notes that already started are delivered immediately by Stop; stops
// for notes that never started are dropped.
type Scheduler struct {
	mu         sync.Mutex
	clock      Clock
	sink       TriggerSink
	config     SchedulerConfig
	state      State
	runs       []*Run
	nextID     int
	teardown   func()
	transition func(from, to State)
	metrics    *metrics.Recorder
	logger     logging.Logger
}

// NewScheduler creates an idle scheduler. clock defaults to RealClock and
// rec may be nil.
func NewScheduler(clock Clock, sink TriggerSink, config SchedulerConfig, rec *metrics.Recorder, logger logging.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if config.NoteDuration <= 0 {
		config.NoteDuration = melody.DefaultNoteDuration
	}
	if config.Overlap == "" {
		config.Overlap = OverlapAllow
	}

	return &Scheduler{
		clock:   clock,
		sink:    sink,
		config:  config,
		metrics: rec,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "melody_scheduler",
		}),
	}
}

// SetTeardown registers the hook Stop uses to release the shared audio
// context once every run is cancelled.
func (s *Scheduler) SetTeardown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = fn
}

// OnTransition registers a callback for state changes. It runs with the
// scheduler lock held.
func (s *Scheduler) OnTransition(fn func(from, to State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition = fn
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Play schedules m and returns immediately. An empty melody schedules
// nothing and returns nil.
func (s *Scheduler) Play(m melody.Melody) *Run {
	if len(m) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Overlap == OverlapReplace && len(s.runs) > 0 {
		s.cancelLocked()
	}

	s.nextID++
	run := &Run{
		id:      s.nextID,
		started: make(map[int]bool),
		done:    make(chan struct{}),
	}

	for i, n := range m {
		offset, ok := m.Offset(i)
		if !ok {
			run.skipped++
			continue
		}
		run.actions = append(run.actions,
			&action{kind: ActionStart, index: i, note: n, delay: offset},
			&action{kind: ActionStop, index: i, note: n, delay: offset + s.config.NoteDuration},
		)
	}
	run.remaining = len(run.actions)

	for _, a := range run.actions {
		a.timer = s.clock.AfterFunc(a.delay, func() { s.fire(run, a) })
	}

	s.runs = append(s.runs, run)
	s.setState(Scheduled)
	s.metrics.NotesScheduled(len(run.actions)/2, run.skipped)

	s.logger.Debug("Melody scheduled", logging.Fields{
		"function": "Play",
		"run":      run.id,
		"notes":    len(run.actions) / 2,
		"skipped":  run.skipped,
	})
	return run
}

func (s *Scheduler) fire(run *Run, a *action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.cancelled || a.fired {
		return
	}
	s.deliverLocked(run, a)

	if run.remaining == 0 {
		s.finishLocked(run)
		if len(s.runs) == 0 {
			s.setState(Idle)
		}
	}
}

func (s *Scheduler) deliverLocked(run *Run, a *action) {
	a.fired = true
	run.remaining--
	if a.kind == ActionStart {
		run.started[a.index] = true
	}
	if s.sink != nil {
		s.sink.Trigger(a.note.Pitch, a.note.Volume, a.kind)
	}
	s.metrics.Trigger(string(a.kind))
}

func (s *Scheduler) finishLocked(run *Run) {
	for i, r := range s.runs {
		if r == run {
			s.runs = append(s.runs[:i], s.runs[i+1:]...)
			break
		}
	}
	close(run.done)
}

// Stop cancels every pending run, silences notes that are sounding and
// tears down the shared audio context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancelLocked()
	teardown := s.teardown
	s.mu.Unlock()

	if teardown != nil {
		teardown()
	}
}

// Reset stops playback and returns the scheduler to a cold Idle state.
func (s *Scheduler) Reset() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = 0
	s.setState(Idle)
}

func (s *Scheduler) cancelLocked() {
	if len(s.runs) == 0 {
		return
	}
	s.setState(Cancelled)

	for _, run := range s.runs {
		silenced := 0
		for _, a := range run.actions {
			if a.fired {
				continue
			}
			a.timer.Stop()
			if a.kind == ActionStop && run.started[a.index] {
				s.deliverLocked(run, a)
				silenced++
				continue
			}
			a.fired = true
		}
		run.cancelled = true
		close(run.done)
		s.metrics.RunCancelled()

		s.logger.Debug("Run cancelled", logging.Fields{
			"function": "Stop",
			"run":      run.id,
			"silenced": silenced,
		})
	}
	s.runs = nil
	s.setState(Idle)
}

func (s *Scheduler) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.transition != nil {
		s.transition(from, to)
	}
}
