package engine

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownCommand is returned by Execute for a command it doesn't know.
var ErrUnknownCommand = errors.New("unknown command")

// Command names accepted by Execute.
const (
	CmdPlay               = "PLAY"
	CmdStop               = "STOP"
	CmdSetTempo           = "SET_TEMPO"
	CmdToggleMetronome    = "TOGGLE_METRONOME"
	CmdToggleLoop         = "TOGGLE_LOOP"
	CmdToggleMute         = "TOGGLE_MUTE"
	CmdToggleCountdown    = "TOGGLE_COUNTDOWN"
	CmdSetBassVolume      = "SET_BASS_VOLUME"
	CmdSetMetronomeVolume = "SET_METRONOME_VOLUME"
)

// Command is a transport command from a remote view or controller.
type Command struct {
	Name  string  `json:"command"`
	Value float64 `json:"value,omitempty"`
}

// Execute runs c against the engine.
func (e *Engine) Execute(c Command) error {
	switch c.Name {
	case CmdPlay:
		e.Play()
	case CmdStop:
		e.Stop()
	case CmdSetTempo:
		e.SetTempo(int(math.Round(c.Value)))
	case CmdToggleMetronome:
		e.ToggleMetronome()
	case CmdToggleLoop:
		e.ToggleLoop()
	case CmdToggleMute:
		e.ToggleNotesMuted()
	case CmdToggleCountdown:
		e.ToggleCountdown()
	case CmdSetBassVolume:
		e.SetBassVolume(c.Value)
	case CmdSetMetronomeVolume:
		e.SetMetronomeVolume(c.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name)
	}
	return nil
}
