package midiout

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func exercise(t *testing.T) Exercise {
	t.Helper()
	notes, err := pattern.GenerateNotes("root-fifth-octave", "A")
	if err != nil {
		t.Fatal(err)
	}
	return Exercise{
		Notes:           notes,
		Tempo:           90,
		Subdivision:     3,
		BeatsPerMeasure: 4,
		Loops:           2,
		Metronome:       true,
	}
}

type noteOn struct {
	tick uint32
	ch   uint8
	key  uint8
}

func noteOns(track smf.Track) []noteOn {
	var out []noteOn
	var tick uint32
	for _, ev := range track {
		tick += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			out = append(out, noteOn{tick: tick, ch: ch, key: key})
		}
	}
	return out
}

func TestExport(t *testing.T) {
	ex := exercise(t)

	var buf bytes.Buffer
	if err := Export(&buf, ex); err != nil {
		t.Fatal(err)
	}
	rd, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}

	if len(rd.Tracks) != 3 {
		t.Fatalf("tracks = %d, want 3", len(rd.Tracks))
	}
	if tc := rd.TempoChanges(); len(tc) == 0 || math.Abs(tc[0].BPM-90) > 0.01 {
		t.Errorf("tempo changes = %v, want 90 BPM", tc)
	}

	bass := noteOns(rd.Tracks[1])
	if len(bass) != 2*len(ex.Notes) {
		t.Fatalf("bass notes = %d, want %d", len(bass), 2*len(ex.Notes))
	}
	for i, n := range bass {
		want := ex.Notes[i%len(ex.Notes)]
		if n.ch != BassChannel || int(n.key) != want.Pitch() {
			t.Errorf("bass note %d = ch %d key %d, want ch 0 key %d", i, n.ch, n.key, want.Pitch())
		}
		if n.tick != uint32(i)*320 {
			t.Errorf("bass note %d at tick %d, want %d", i, n.tick, i*320)
		}
	}

	clicks := noteOns(rd.Tracks[2])
	if len(clicks) != 8 {
		t.Fatalf("clicks = %d, want 8", len(clicks))
	}
	for i, c := range clicks {
		want := uint8(BeatKey)
		if i%4 == 0 {
			want = DownbeatKey
		}
		if c.ch != ClickChannel || c.key != want {
			t.Errorf("click %d = ch %d key %d, want ch 9 key %d", i, c.ch, c.key, want)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	ex := exercise(t)

	bad := ex
	bad.Tempo = 0
	if _, err := Build(bad); err == nil {
		t.Error("accepted tempo 0")
	}
	bad = ex
	bad.Subdivision = 7
	if _, err := Build(bad); err == nil {
		t.Error("accepted subdivision 7")
	}
	bad = ex
	bad.Notes = nil
	if _, err := Build(bad); err == nil {
		t.Error("accepted empty exercise")
	}
	bad = ex
	bad.BeatsPerMeasure = 300
	if _, err := Build(bad); err == nil {
		t.Error("accepted 300 beats per measure")
	}
	bad = ex
	bad.Loops = math.MaxInt32
	if _, err := Build(bad); err == nil {
		t.Error("accepted an exercise longer than the tick range")
	}
}

func TestMidiKey(t *testing.T) {
	tests := []struct {
		pitch int
		want  uint8
	}{
		{-3, 0},
		{0, 0},
		{28, 28},
		{127, 127},
		{200, 127},
	}

	for _, tt := range tests {
		if got := midiKey(tt.pitch); got != tt.want {
			t.Errorf("midiKey(%d) = %d, want %d", tt.pitch, got, tt.want)
		}
	}
}

type fakeClock struct{ now float64 }

func (c *fakeClock) Now() float64  { return c.now }
func (c *fakeClock) Running() bool { return true }

type sent struct {
	at  time.Duration
	msg midi.Message
}

func newTestEmitter() (*Emitter, *runloop.Manual, *[]sent) {
	loop := runloop.NewManual()
	clock := &fakeClock{}
	epoch := loop.Now()
	loop.OnAdvance = func(now time.Time) { clock.now = now.Sub(epoch).Seconds() }

	var out []sent
	e := NewEmitter(loop, clock, func(msg midi.Message) error {
		out = append(out, sent{at: loop.Now().Sub(epoch), msg: msg})
		return nil
	})
	return e, loop, &out
}

func TestEmitterTiming(t *testing.T) {
	e, loop, out := newTestEmitter()
	note := pattern.Note{String: pattern.StringA, Fret: 2}

	e.PlaySound(note, 0.25, false, 1)
	e.PlaySound(note, 0.5, true, 1)
	e.PlayMetronomeClick(0.25, true, true, true, 0.5)
	e.PlayMetronomeClick(0.3, false, false, true, 0.5)
	e.PlayMetronomeClick(0.35, false, true, false, 0.5)

	loop.Advance(time.Second)

	if len(*out) != 4 {
		t.Fatalf("sent %d messages, want 4", len(*out))
	}
	var ch, key, vel uint8
	first := (*out)[0]
	if !first.msg.GetNoteOn(&ch, &key, &vel) || ch != BassChannel || int(key) != note.Pitch() || vel != 127 {
		t.Errorf("first message = %v", first.msg)
	}
	if first.at != 250*time.Millisecond {
		t.Errorf("note on at %v, want 250ms", first.at)
	}
	if !(*out)[1].msg.GetNoteOn(&ch, &key, &vel) || ch != ClickChannel || key != DownbeatKey {
		t.Errorf("second message = %v", (*out)[1].msg)
	}
	last := (*out)[3]
	if !last.msg.GetNoteOff(&ch, &key, &vel) || last.at != 750*time.Millisecond {
		t.Errorf("last message = %v at %v, want note off at 750ms", last.msg, last.at)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", e.Pending())
	}
}

func TestEmitterSilence(t *testing.T) {
	e, loop, out := newTestEmitter()
	note := pattern.Note{String: pattern.StringE, Fret: 0}

	e.PlaySound(note, 0.1, false, 1)
	e.PlaySound(note, 2, false, 1)
	loop.Advance(200 * time.Millisecond)
	e.Silence()
	loop.Advance(3 * time.Second)

	if len(*out) != 2 {
		t.Fatalf("sent %d messages, want note on + release", len(*out))
	}
	var ch, key, vel uint8
	if !(*out)[1].msg.GetNoteOff(&ch, &key, &vel) || int(key) != note.Pitch() {
		t.Errorf("release = %v", (*out)[1].msg)
	}
}

type countEmitter struct {
	sounds, clicks, silenced int
}

func (c *countEmitter) PlaySound(pattern.Note, float64, bool, float64) { c.sounds++ }
func (c *countEmitter) PlayMetronomeClick(float64, bool, bool, bool, float64) {
	c.clicks++
}
func (c *countEmitter) Silence() { c.silenced++ }

func TestTee(t *testing.T) {
	a, b := &countEmitter{}, &countEmitter{}
	tee := Tee{a, b}

	tee.PlaySound(pattern.Note{}, 0, false, 1)
	tee.PlayMetronomeClick(0, true, true, true, 1)
	tee.Silence()

	for i, c := range []*countEmitter{a, b} {
		if c.sounds != 1 || c.clicks != 1 || c.silenced != 1 {
			t.Errorf("emitter %d = %+v", i, c)
		}
	}
}
