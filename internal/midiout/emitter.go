package midiout

import (
	"fmt"
	"math"
	"time"

	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
)

// NoteLength is how long a live note is held.
const NoteLength = 500 * time.Millisecond

// SendFunc delivers one MIDI message.
type SendFunc func(msg midi.Message) error

// OpenPort finds the output port called name and returns a sender for it.
func OpenPort(name string) (SendFunc, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("MIDI output %q not found: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("opening MIDI output %q: %w", name, err)
	}
	return send, nil
}

type sounding struct {
	channel, key uint8
}

// Emitter plays the scheduler's notes on a MIDI output. Messages go out when
// the audio clock reaches each note's time, so they line up with the audio
// voices. It must be used on the engine's loop.
type Emitter struct {
	loop  runloop.Loop
	clock audio.Clock
	send  SendFunc
	log   *logrus.Entry

	nextID   int
	timers   map[int]runloop.Timer
	sounding map[sounding]int
}

// NewEmitter creates a MIDI emitter.
func NewEmitter(loop runloop.Loop, clock audio.Clock, send SendFunc) *Emitter {
	return &Emitter{
		loop:     loop,
		clock:    clock,
		send:     send,
		log:      logrus.WithField("component", "midiout"),
		timers:   make(map[int]runloop.Timer),
		sounding: make(map[sounding]int),
	}
}

// PlaySound sends note n on the bass channel at clock time at.
func (e *Emitter) PlaySound(n pattern.Note, at float64, muted bool, volume float64) {
	if muted || volume <= 0 {
		return
	}
	e.schedule(at, BassChannel, midiKey(n.Pitch()), scaleVelocity(volume))
}

// PlayMetronomeClick sends a wood block on the drum channel at clock time at.
func (e *Emitter) PlayMetronomeClick(at float64, isDownbeat, isFirstOfBeat, enabled bool, volume float64) {
	if !enabled || !isFirstOfBeat || volume <= 0 {
		return
	}
	key := uint8(BeatKey)
	if isDownbeat {
		key = DownbeatKey
	}
	e.schedule(at, ClickChannel, key, scaleVelocity(volume))
}

// Silence cancels pending notes and releases sounding ones.
func (e *Emitter) Silence() {
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	for s := range e.sounding {
		e.deliver(midi.NoteOff(s.channel, s.key))
		delete(e.sounding, s)
	}
}

// Pending is the number of notes waiting to start or end.
func (e *Emitter) Pending() int {
	return len(e.timers)
}

func (e *Emitter) schedule(at float64, channel, key, vel uint8) {
	delay := time.Duration(math.Max(0, (at-e.clock.Now())*1000) * float64(time.Millisecond))
	s := sounding{channel: channel, key: key}

	var on int
	on = e.after(delay, func() {
		delete(e.timers, on)
		e.deliver(midi.NoteOn(channel, key, vel))
		e.sounding[s]++

		var off int
		off = e.after(NoteLength, func() {
			delete(e.timers, off)
			e.deliver(midi.NoteOff(channel, key))
			if e.sounding[s]--; e.sounding[s] <= 0 {
				delete(e.sounding, s)
			}
		})
	})
}

func (e *Emitter) after(d time.Duration, fn func()) int {
	e.nextID++
	id := e.nextID
	e.timers[id] = e.loop.AfterFunc(d, fn)
	return id
}

func (e *Emitter) deliver(msg midi.Message) {
	if err := e.send(msg); err != nil {
		e.log.WithError(err).Warn("MIDI send failed")
	}
}

func scaleVelocity(volume float64) uint8 {
	if volume > 1 {
		volume = 1
	}
	return uint8(1 + math.Round(volume*126))
}

// Tee fans every call out to several emitters.
type Tee []engine.Emitter

func (t Tee) PlaySound(n pattern.Note, at float64, muted bool, volume float64) {
	for _, e := range t {
		e.PlaySound(n, at, muted, volume)
	}
}

func (t Tee) PlayMetronomeClick(at float64, isDownbeat, isFirstOfBeat, enabled bool, volume float64) {
	for _, e := range t {
		e.PlayMetronomeClick(at, isDownbeat, isFirstOfBeat, enabled, volume)
	}
}

// Silence silences every emitter that supports it.
func (t Tee) Silence() {
	for _, e := range t {
		if s, ok := e.(engine.Silencer); ok {
			s.Silence()
		}
	}
}
