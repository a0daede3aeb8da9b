package midictl

import (
	"testing"

	"github.com/icco/basstrainer/internal/engine"
	"gitlab.com/gomidi/midi/v2"
)

func TestMap(t *testing.T) {
	idle := engine.DefaultState()
	idle.Tempo = 100
	playing := idle
	playing.IsPlaying = true

	tests := []struct {
		name   string
		msg    midi.Message
		state  engine.State
		want   engine.Command
		wantOK bool
	}{
		{"play pad idle", midi.NoteOn(0, KeyPlay, 100), idle, engine.Command{Name: engine.CmdPlay}, true},
		{"play pad playing", midi.NoteOn(3, KeyPlay, 100), playing, engine.Command{Name: engine.CmdStop}, true},
		{"play pad release", midi.NoteOn(0, KeyPlay, 0), idle, engine.Command{}, false},
		{"note off", midi.NoteOff(0, KeyPlay), idle, engine.Command{}, false},
		{"slower", midi.NoteOn(0, KeySlower, 90), idle, engine.Command{Name: engine.CmdSetTempo, Value: 95}, true},
		{"faster", midi.NoteOn(0, KeyFaster, 90), idle, engine.Command{Name: engine.CmdSetTempo, Value: 105}, true},
		{"metronome", midi.NoteOn(0, KeyMetronome, 90), idle, engine.Command{Name: engine.CmdToggleMetronome}, true},
		{"loop", midi.NoteOn(0, KeyLoop, 90), idle, engine.Command{Name: engine.CmdToggleLoop}, true},
		{"unmapped key", midi.NoteOn(0, 30, 90), idle, engine.Command{}, false},
		{"sustain down", midi.ControlChange(0, CCSustain, 127), idle, engine.Command{Name: engine.CmdPlay}, true},
		{"sustain up", midi.ControlChange(0, CCSustain, 0), playing, engine.Command{}, false},
		{"bass volume", midi.ControlChange(0, CCBassVolume, 127), idle, engine.Command{Name: engine.CmdSetBassVolume, Value: 1}, true},
		{"metronome volume", midi.ControlChange(0, CCMetronomeVolume, 0), idle, engine.Command{Name: engine.CmdSetMetronomeVolume, Value: 0}, true},
		{"pitch bend", midi.Pitchbend(0, 100), idle, engine.Command{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Map(tt.msg, tt.state)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Map() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
