// Package midictl turns a MIDI controller into a transport remote: pads and
// pedals play and stop, knobs set volumes.
package midictl

import (
	"fmt"

	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Controller mapping.
const (
	KeyPlay      = 60 // C4
	KeySlower    = 62
	KeyFaster    = 64
	KeyMetronome = 65
	KeyLoop      = 67

	CCBassVolume      = 7
	CCMetronomeVolume = 11
	CCSustain         = 64

	TempoStep = 5
)

// Map converts a controller message into a transport command, given the
// current state. ok is false for messages with no mapping.
func Map(msg midi.Message, state engine.State) (cmd engine.Command, ok bool) {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		switch key {
		case KeyPlay:
			return playOrStop(state), true
		case KeySlower:
			return engine.Command{Name: engine.CmdSetTempo, Value: float64(state.Tempo - TempoStep)}, true
		case KeyFaster:
			return engine.Command{Name: engine.CmdSetTempo, Value: float64(state.Tempo + TempoStep)}, true
		case KeyMetronome:
			return engine.Command{Name: engine.CmdToggleMetronome}, true
		case KeyLoop:
			return engine.Command{Name: engine.CmdToggleLoop}, true
		}
		return cmd, false
	}

	var cc, val uint8
	if msg.GetControlChange(&ch, &cc, &val) {
		switch cc {
		case CCSustain:
			if val >= 64 {
				return playOrStop(state), true
			}
		case CCBassVolume:
			return engine.Command{Name: engine.CmdSetBassVolume, Value: float64(val) / 127}, true
		case CCMetronomeVolume:
			return engine.Command{Name: engine.CmdSetMetronomeVolume, Value: float64(val) / 127}, true
		}
	}
	return cmd, false
}

func playOrStop(state engine.State) engine.Command {
	if state.Active() {
		return engine.Command{Name: engine.CmdStop}
	}
	return engine.Command{Name: engine.CmdPlay}
}

// Target is what controller commands act on.
type Target interface {
	Snapshot() engine.Snapshot
	Execute(engine.Command) error
}

// Listen opens the input port called name and executes mapped commands on
// loop. Call the returned stop function to close the port.
func Listen(name string, loop runloop.Loop, target Target) (stop func(), err error) {
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("MIDI input %q not found: %w", name, err)
	}
	return ListenTo(in, loop, target)
}

// ListenTo is Listen for an already located port.
func ListenTo(in drivers.In, loop runloop.Loop, target Target) (stop func(), err error) {
	log := logrus.WithFields(logrus.Fields{"component": "midictl", "port": in.String()})

	stop, err = midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		loop.Post(func() {
			cmd, ok := Map(msg, target.Snapshot().State)
			if !ok {
				log.WithField("msg", msg.String()).Debug("unmapped MIDI message")
				return
			}
			if err := target.Execute(cmd); err != nil {
				log.WithError(err).Warn("controller command failed")
			}
		})
	}, midi.HandleError(func(listenErr error) {
		log.WithError(listenErr).Warn("MIDI listener error, device likely disconnected")
	}))
	if err != nil {
		return nil, fmt.Errorf("listening to %s: %w", in.String(), err)
	}
	log.Info("MIDI controller connected")
	return stop, nil
}
