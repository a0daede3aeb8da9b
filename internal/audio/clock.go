// Package audio provides the audio clock and the sound emitter used by the
// playback engine.
package audio

import (
	"errors"
)

const (
	// DefaultSampleRate is used for the output device and offline renders.
	DefaultSampleRate = 44100
)

var (
	// ErrDeviceUnavailable means the output device could not be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrDeviceClosed means the output device was already closed.
	ErrDeviceClosed = errors.New("audio device closed")
)

// Clock is the audio-hardware clock. Now returns seconds in the output
// device's time domain and never goes backwards.
type Clock interface {
	Now() float64
	// Running reports whether the clock is advancing and sounds scheduled
	// against it will be heard.
	Running() bool
}

// Null is the clock and output used when no device could be opened. It never
// runs and drops everything scheduled on it.
type Null struct{}

func (Null) Now() float64    { return 0 }
func (Null) Running() bool   { return false }
func (Null) SampleRate() int { return DefaultSampleRate }

func (Null) Schedule(Voice, float64) error { return ErrDeviceUnavailable }
