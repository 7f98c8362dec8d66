package audio

import (
	"context"
	"sync"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/playback"
)

const (
	oscillatorGain = 0.5
	pianoGain      = 8
)

// Player is the trigger sink that drives the shared backend with the
// selected instrument.
type Player struct {
	mu         sync.Mutex
	manager    *ContextManager
	instrument Instrument
	// generation of the backend a tone is sounding on, 0 for none
	toneOn int
	logger logging.Logger
}

// NewPlayer creates a player for instrument.
func NewPlayer(manager *ContextManager, instrument Instrument, logger logging.Logger) *Player {
	return &Player{
		manager:    manager,
		instrument: instrument,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "audio_player",
		}),
	}
}

// SetInstrument switches instruments for subsequent triggers.
func (p *Player) SetInstrument(inst Instrument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instrument = inst
}

// Instrument returns the selected instrument.
func (p *Player) Instrument() Instrument {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instrument
}

// Trigger implements playback.TriggerSink.
func (p *Player) Trigger(pitch string, volume float64, action playback.Action) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := p.logger.WithFields(logging.Fields{
		"function":   "Trigger",
		"pitch":      pitch,
		"action":     string(action),
		"instrument": p.instrument.Kind.String(),
	})

	backend, gen, err := p.manager.Acquire(context.Background())
	if err != nil {
		logger.Error(err, "No audio context")
		return
	}
	// a tone on a torn-down context is already silent
	if p.toneOn != gen {
		p.toneOn = 0
	}

	switch p.instrument.Kind {
	case Oscillator:
		err = p.oscillator(backend, gen, pitch, volume, action, logger)
	case Piano:
		err = p.piano(backend, pitch, volume, action, logger)
	default:
		logger.Warn("Unsupported instrument")
		return
	}
	if err != nil {
		logger.Error(err, "Audio backend failed")
	}
}

func (p *Player) oscillator(b Backend, gen int, pitch string, volume float64, action playback.Action, logger logging.Logger) error {
	switch action {
	case playback.ActionStart:
		freq, ok := p.instrument.Frequencies[pitch]
		if !ok {
			logger.Warn("Unknown pitch ignored")
			return nil
		}
		if p.toneOn != 0 {
			if err := b.StopTone(); err != nil {
				return err
			}
			p.toneOn = 0
		}
		if err := b.StartTone(freq, volume*oscillatorGain); err != nil {
			return err
		}
		p.toneOn = gen
	case playback.ActionUpdate:
		if p.toneOn == 0 {
			return nil
		}
		freq, ok := p.instrument.Frequencies[pitch]
		if !ok {
			logger.Warn("Unknown pitch ignored")
			return nil
		}
		return b.UpdateTone(freq, volume*oscillatorGain)
	case playback.ActionStop:
		if p.toneOn == 0 {
			return nil
		}
		p.toneOn = 0
		return b.StopTone()
	}
	return nil
}

func (p *Player) piano(b Backend, pitch string, volume float64, action playback.Action, logger logging.Logger) error {
	if action != playback.ActionStart {
		return nil
	}
	ref, ok := p.instrument.Samples[pitch]
	if !ok {
		logger.Warn("Unknown pitch ignored")
		return nil
	}
	return b.PlaySample(ref, volume*pianoGain)
}
