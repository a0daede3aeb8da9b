package engine

import (
	"math"
	"time"

	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
)

// Emitter schedules sounds against the audio clock. Implementations must not
// panic or block.
type Emitter interface {
	PlaySound(n pattern.Note, at float64, muted bool, volume float64)
	PlayMetronomeClick(at float64, isDownbeat, isFirstOfBeat, enabled bool, volume float64)
}

// Settings is the live transport configuration. The scheduler reads it on
// every note, so changes apply to the next note scheduled.
type Settings interface {
	Tempo() int
	Looping() bool
	NotesMuted() bool
	MetronomeEnabled() bool
	BassVolume() float64
	MetronomeVolume() float64
}

// Scheduler walks a note sequence and hands each note to the emitter ahead of
// the audio clock. It ticks once per frame while active.
type Scheduler struct {
	loop     runloop.Loop
	clock    audio.Clock
	emitter  Emitter
	settings Settings
	timing   Timing
	log      *logrus.Entry

	notes        []pattern.Note
	nextNoteTime float64
	playIndex    int
	primed       bool
	active       bool
	frame        runloop.FrameID

	// generation changes on every Start and Stop; deferred callbacks
	// carrying an older value are stale.
	generation uint64

	// OnNote is called when note index starts sounding.
	OnNote func(index int)
	// OnLoopRestart is called when the sequence wraps back to index 0.
	OnLoopRestart func()
	// OnEnded is called once at the end of the last note of a non-looping run.
	OnEnded func()
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(loop runloop.Loop, clock audio.Clock, emitter Emitter, settings Settings, timing Timing) *Scheduler {
	return &Scheduler{
		loop:     loop,
		clock:    clock,
		emitter:  emitter,
		settings: settings,
		timing:   timing,
		log:      logrus.WithField("component", "scheduler"),
	}
}

// Start begins scheduling notes from index 0. The first note is placed
// Priming seconds after the clock's current time. Starting an active
// scheduler does nothing.
func (s *Scheduler) Start(notes []pattern.Note) {
	if s.active {
		return
	}
	if len(notes) == 0 {
		s.log.Debug("nothing to schedule")
		return
	}

	s.notes = notes
	s.playIndex = 0
	s.primed = false
	s.active = true
	s.generation++

	s.tick()
}

// Stop cancels the pending frame. No note is scheduled after Stop returns, but
// sounds already handed to the emitter still play.
func (s *Scheduler) Stop() {
	s.active = false
	if s.frame != 0 {
		s.loop.CancelFrame(s.frame)
		s.frame = 0
	}
	s.generation++
}

// Active reports whether the scheduler is still scheduling notes.
func (s *Scheduler) Active() bool {
	return s.active
}

// NextNoteTime is the clock time of the next unscheduled note.
func (s *Scheduler) NextNoteTime() float64 {
	return s.nextNoteTime
}

// PlayIndex is the index of the next unscheduled note.
func (s *Scheduler) PlayIndex() int {
	return s.playIndex
}

func (s *Scheduler) tick() {
	s.frame = 0
	if !s.active {
		return
	}

	if s.clock != nil && s.clock.Running() {
		s.schedulePending()
	}

	if s.active {
		s.frame = s.loop.RequestFrame(s.tick)
	}
}

// schedulePending commits every note due before now+Lookahead. A late frame
// schedules all the notes it missed in one pass.
func (s *Scheduler) schedulePending() {
	now := s.clock.Now()
	if !s.primed {
		s.nextNoteTime = now + s.timing.Priming
		s.primed = true
	}

	for s.active && s.nextNoteTime < now+s.timing.Lookahead {
		tempo := s.settings.Tempo()
		if tempo <= 0 {
			return
		}

		s.scheduleNote(s.playIndex, s.nextNoteTime)
		s.nextNoteTime += s.timing.NoteTime(tempo)
		s.playIndex++

		if s.playIndex >= len(s.notes) {
			if s.settings.Looping() {
				s.playIndex = 0
				if s.OnLoopRestart != nil {
					s.OnLoopRestart()
				}
				continue
			}
			s.finish()
		}
	}
}

func (s *Scheduler) scheduleNote(index int, at float64) {
	subdiv := int(s.timing.Subdivision)
	isFirstOfBeat := index%subdiv == 0
	isDownbeat := index%(subdiv*s.timing.BeatsPerMeasure) == 0

	s.emitter.PlaySound(s.notes[index], at, s.settings.NotesMuted(), s.settings.BassVolume())
	s.emitter.PlayMetronomeClick(at, isDownbeat, isFirstOfBeat, s.settings.MetronomeEnabled(), s.settings.MetronomeVolume())

	s.at(at, func() {
		if s.OnNote != nil {
			s.OnNote(index)
		}
	})
}

// finish ends a non-looping run. Scheduling stops now; OnEnded waits until
// the last note's slot is over.
func (s *Scheduler) finish() {
	s.active = false
	s.at(s.nextNoteTime, func() {
		if s.OnEnded != nil {
			s.OnEnded()
		}
	})
}

// at runs fn on the loop once the clock reaches t, converted to a timer delay.
// fn is dropped if the scheduler was started or stopped in the meantime.
func (s *Scheduler) at(t float64, fn func()) {
	gen := s.generation
	delay := math.Max(0, (t-s.clock.Now())*1000)
	s.loop.AfterFunc(time.Duration(delay*float64(time.Millisecond)), func() {
		if gen != s.generation {
			s.log.Debug("dropping stale callback")
			return
		}
		fn()
	})
}
