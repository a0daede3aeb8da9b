// Package midiout sends exercises to MIDI: as a Standard MIDI File, or live
// to an output port in step with the audio scheduler.
package midiout

import (
	"fmt"
	"io"
	"math"

	"github.com/icco/basstrainer/internal/pattern"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// TicksPerQuarter is the SMF resolution.
	TicksPerQuarter = 960

	BassChannel  = 0
	ClickChannel = 9

	DownbeatKey = 76 // high wood block
	BeatKey     = 77 // low wood block

	velocity = 100

	maxBeatsPerMeasure = math.MaxUint8
)

// midiKey clamps a pitch into the 7-bit key range.
func midiKey(pitch int) uint8 {
	return uint8(min(max(pitch, 0), 127))
}

// Exercise is what Export writes.
type Exercise struct {
	Notes           []pattern.Note
	Tempo           int
	Subdivision     int
	BeatsPerMeasure int
	// Loops repeats the note sequence; values below 1 write it once.
	Loops     int
	Metronome bool
}

// Build returns the exercise as a format 1 SMF: a tempo track, a bass track
// and, with Metronome set, a click track.
func Build(ex Exercise) (*smf.SMF, error) {
	if len(ex.Notes) == 0 {
		return nil, fmt.Errorf("no notes to export")
	}
	if ex.Tempo <= 0 {
		return nil, fmt.Errorf("invalid tempo %d", ex.Tempo)
	}
	if ex.Subdivision <= 0 || TicksPerQuarter%ex.Subdivision != 0 {
		return nil, fmt.Errorf("invalid subdivision %d", ex.Subdivision)
	}
	if ex.BeatsPerMeasure <= 0 {
		ex.BeatsPerMeasure = 4
	}
	if ex.BeatsPerMeasure > maxBeatsPerMeasure {
		return nil, fmt.Errorf("invalid beats per measure %d", ex.BeatsPerMeasure)
	}
	loops := max(ex.Loops, 1)
	step := uint32(TicksPerQuarter / ex.Subdivision)
	total := len(ex.Notes) * loops
	if uint64(total) > math.MaxUint32/uint64(step)-1 {
		return nil, fmt.Errorf("exercise too long: %d notes", total)
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(uint8(ex.BeatsPerMeasure), 4))
	track0.Add(0, smf.MetaTempo(float64(ex.Tempo)))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}


	var bass smf.Track
	var lastTick uint32
	for i := 0; i < total; i++ {
		n := ex.Notes[i%len(ex.Notes)]
		pos := uint32(i) * step
		key := midiKey(n.Pitch())
		bass.Add(pos-lastTick, midi.NoteOn(BassChannel, key, velocity))
		bass.Add(step-1, midi.NoteOff(BassChannel, key))
		lastTick = pos + step - 1
	}
	bass.Close(1)
	if err := sm.Add(bass); err != nil {
		return nil, fmt.Errorf("error adding bass track: %w", err)
	}

	if ex.Metronome {
		var clicks smf.Track
		lastTick = 0
		clickLen := step / 2
		for i := 0; i < total; i += ex.Subdivision {
			pos := uint32(i) * step
			key := uint8(BeatKey)
			if i%(ex.Subdivision*ex.BeatsPerMeasure) == 0 {
				key = DownbeatKey
			}
			clicks.Add(pos-lastTick, midi.NoteOn(ClickChannel, key, velocity))
			clicks.Add(clickLen, midi.NoteOff(ClickChannel, key))
			lastTick = pos + clickLen
		}
		clicks.Close(0)
		if err := sm.Add(clicks); err != nil {
			return nil, fmt.Errorf("error adding click track: %w", err)
		}
	}

	return sm, nil
}

// Export writes the exercise as an SMF to w.
func Export(w io.Writer, ex Exercise) error {
	sm, err := Build(ex)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// ExportFile writes the exercise as an SMF to path.
func ExportFile(path string, ex Exercise) error {
	sm, err := Build(ex)
	if err != nil {
		return err
	}
	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}
