package audio

import (
	"fmt"

	"github.com/icco/basstrainer/internal/pattern"
	"github.com/sirupsen/logrus"
)

// Output is where the synth schedules voices.
type Output interface {
	Schedule(v Voice, at float64) error
	SampleRate() int
}

// Silencer is an Output that can drop everything it has scheduled.
type Silencer interface {
	Silence()
}

// Synth turns notes and metronome clicks into scheduled voices. Each call
// builds a fresh voice that frees itself when it ends.
type Synth struct {
	out Output
	log *logrus.Entry
}

// NewSynth creates a synth scheduling onto out.
func NewSynth(out Output) *Synth {
	return &Synth{
		out: out,
		log: logrus.WithField("component", "synth"),
	}
}

// PlaySound schedules note n at clock time at. Muted notes produce nothing.
func (s *Synth) PlaySound(n pattern.Note, at float64, muted bool, volume float64) {
	if muted {
		return
	}
	volume = clamp01(volume)
	if volume == 0 {
		return
	}
	s.safely("note", func() error {
		freq := n.Frequency()
		if freq <= 0 {
			return fmt.Errorf("no frequency for string %v fret %d", n.String, n.Fret)
		}
		return s.out.Schedule(newBassVoice(freq, volume, s.out.SampleRate()), at)
	})
}

// PlayMetronomeClick schedules a click at clock time at. Only the first
// subdivision of a beat clicks; the downbeat of a measure uses the higher voice.
func (s *Synth) PlayMetronomeClick(at float64, isDownbeat, isFirstOfBeat, enabled bool, volume float64) {
	if !enabled || !isFirstOfBeat {
		return
	}
	volume = clamp01(volume)
	if volume == 0 {
		return
	}
	s.safely("click", func() error {
		return s.out.Schedule(newClickVoice(isDownbeat, volume, s.out.SampleRate()), at)
	})
}

// Silence drops every voice already handed to the output.
func (s *Synth) Silence() {
	if sl, ok := s.out.(Silencer); ok {
		sl.Silence()
	}
}

// safely runs fn and drops any error or panic so a single bad voice never
// reaches the scheduler.
func (s *Synth) safely(kind string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("kind", kind).Warnf("synthesis panic: %v", r)
		}
	}()
	if err := fn(); err != nil {
		s.log.WithField("kind", kind).WithError(err).Warn("synthesis failed")
	}
}
