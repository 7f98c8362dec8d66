package melody

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ticksPerQuarter is the SMF resolution used for export.
const ticksPerQuarter = 960

type midiEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// ExportMIDI writes m as a single-track standard MIDI file. Notes keep the
// scheduler's timing: each starts at its offset from the first event and
// lasts DefaultNoteDuration. Events before the first timestamp are skipped.
func ExportMIDI(w io.Writer, m Melody, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("%w: %v", ErrBadTempo, bpm)
	}

	toTicks := func(d time.Duration) uint32 {
		return uint32(math.Round(d.Minutes() * bpm * ticksPerQuarter))
	}

	var events []midiEvent
	for i, n := range m {
		offset, ok := m.Offset(i)
		if !ok {
			continue
		}
		p, err := ParsePitch(n.Pitch)
		if err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		key := uint8(min(max(p.MIDI(), 0), 127))
		vel := uint8(min(max(math.Round(n.Volume*127), 1), 127))

		events = append(events,
			midiEvent{tick: toTicks(offset), on: true, key: key, vel: vel},
			midiEvent{tick: toTicks(offset + DefaultNoteDuration), key: key},
		)
	}

	// note offs sort before note ons on the same tick so repeated keys retrigger
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))

	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			track.Add(delta, midi.NoteOn(0, ev.key, ev.vel))
		} else {
			track.Add(delta, midi.NoteOff(0, ev.key))
		}
	}
	track.Close(0)

	if err := sm.Add(track); err != nil {
		return fmt.Errorf("error adding track: %w", err)
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}
