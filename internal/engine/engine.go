package engine

import (
	"context"
	"time"

	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
)

// Device is an output that starts suspended and must be resumed on first play.
type Device interface {
	Resume(ctx context.Context) error
}

// Silencer force-silences everything already scheduled.
type Silencer interface {
	Silence()
}

// Header describes the exercise being played.
type Header struct {
	PatternID       string      `json:"patternId"`
	PatternName     string      `json:"patternName"`
	Root            string      `json:"root"`
	Subdivision     Subdivision `json:"subdivision"`
	BeatsPerMeasure int         `json:"beatsPerMeasure"`
}

// Snapshot is the state pushed to observers and the popout.
type Snapshot struct {
	State
	Header Header         `json:"header"`
	Notes  []pattern.Note `json:"notes"`
	Loops  int            `json:"loops"`
}

// Engine wires the player, scheduler and playhead together. It is the only
// place transport actions start or stop them.
type Engine struct {
	loop    runloop.Loop
	clock   audio.Clock
	emitter Emitter
	device  Device
	timing  Timing
	log     *logrus.Entry

	player    *Player
	scheduler *Scheduler
	playhead  *Playhead

	header    Header
	notes     []pattern.Note
	loops     int
	countdown runloop.Timer

	events      chan Event
	subscribers []func(Snapshot)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(e *Engine) {
		e.timing = t
	}
}

// WithDevice sets the output resumed on play.
func WithDevice(d Device) Option {
	return func(e *Engine) {
		e.device = d
	}
}

// WithState sets the initial settings.
func WithState(s State) Option {
	return func(e *Engine) {
		e.player = NewPlayer(e.timing, s)
	}
}

// New builds an idle engine.
func New(loop runloop.Loop, clock audio.Clock, emitter Emitter, opts ...Option) *Engine {
	e := &Engine{
		loop:    loop,
		clock:   clock,
		emitter: emitter,
		timing:  DefaultTiming(),
		log:     logrus.WithField("component", "engine"),
		events:  make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.player == nil {
		e.player = NewPlayer(e.timing, DefaultState())
	}
	e.player.timing = e.timing
	e.player.state.Tempo = e.timing.ClampTempo(e.player.state.Tempo)
	e.player.state.IsAudioReady = e.device != nil || clock.Running()
	e.header.Subdivision = e.timing.Subdivision
	e.header.BeatsPerMeasure = e.timing.BeatsPerMeasure

	e.scheduler = NewScheduler(loop, clock, emitter, e.player, e.timing)
	e.scheduler.OnNote = e.onNote
	e.scheduler.OnLoopRestart = func() {
		e.emit(Event{Kind: EventLoopRestart})
	}
	e.scheduler.OnEnded = e.onEnded

	e.playhead = NewPlayhead(loop, clock, e.player, e.timing)
	e.playhead.OnProgress = func(progress float64, _ int) {
		e.player.SetPlayhead(progress)
	}
	e.playhead.OnLoopRestart = func() {
		e.loops++
	}

	e.player.Subscribe(func(State) { e.publish() })
	return e
}

// Events delivers feedback notifications. Slow readers miss events.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Subscribe registers fn to receive a snapshot after each state change.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.subscribers = append(e.subscribers, fn)
}

// Snapshot returns the current state, header and notes.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:  e.player.State(),
		Header: e.header,
		Notes:  e.notes,
		Loops:  e.loops,
	}
}

// Timing returns the engine's timing constants.
func (e *Engine) Timing() Timing {
	return e.timing
}

func (e *Engine) publish() {
	if len(e.subscribers) == 0 {
		return
	}
	snap := e.Snapshot()
	for _, fn := range e.subscribers {
		fn(snap)
	}
}

// SetNotes replaces the exercise. A running transport is stopped first since
// a run always plays one fixed sequence.
func (e *Engine) SetNotes(h Header, notes []pattern.Note) {
	if e.player.State().Active() {
		e.Stop()
	}
	h.Subdivision = e.timing.Subdivision
	h.BeatsPerMeasure = e.timing.BeatsPerMeasure
	e.header = h
	e.notes = notes
	e.publish()
}

// Play starts playback from the first note. Playing while already active or
// with no notes loaded does nothing.
func (e *Engine) Play() {
	if e.player.State().Active() || len(e.notes) == 0 {
		return
	}
	e.resume()
	e.loops = 0

	e.player.Play()
	e.emit(Event{Kind: EventPlay})
	if e.player.State().IsCountingDown {
		e.countdownStep(e.timing.BeatsPerMeasure)
		return
	}
	e.startTransport()
}

// PlayImmediate starts playback without a countdown.
func (e *Engine) PlayImmediate() {
	if e.player.State().Active() || len(e.notes) == 0 {
		return
	}
	e.resume()
	e.loops = 0

	e.player.PlayImmediate()
	e.emit(Event{Kind: EventPlay})
	e.startTransport()
}

// TogglePlay plays when idle and stops otherwise.
func (e *Engine) TogglePlay() {
	if e.player.State().Active() {
		e.Stop()
		return
	}
	e.Play()
}

// Stop returns to idle from any state. Sounds already scheduled still play;
// use Silence to cut them.
func (e *Engine) Stop() {
	wasActive := e.player.State().Active()
	e.cancelCountdown()
	e.scheduler.Stop()
	e.playhead.Stop()
	e.player.Stop()
	if wasActive {
		e.emit(Event{Kind: EventStop})
	}
}

// Silence cuts every sound already handed to the emitter.
func (e *Engine) Silence() {
	if s, ok := e.emitter.(Silencer); ok {
		s.Silence()
	}
}

// SetTempo clamps tempo to the configured bounds.
func (e *Engine) SetTempo(tempo int) {
	e.player.SetTempo(e.timing.ClampTempo(tempo))
}

// ToggleLoop flips looping. Turning it off mid-run lets the run finish at
// the end of the sequence.
func (e *Engine) ToggleLoop()       { e.player.ToggleLoop() }
func (e *Engine) ToggleMetronome()  { e.player.ToggleMetronome() }
func (e *Engine) ToggleNotesMuted() { e.player.ToggleNotesMuted() }
func (e *Engine) ToggleCountdown()  { e.player.ToggleCountdown() }

func (e *Engine) SetBassVolume(v float64) {
	e.player.SetBassVolume(clampVolume(v))
}

func (e *Engine) SetMetronomeVolume(v float64) {
	e.player.SetMetronomeVolume(clampVolume(v))
}

// Seek moves the playhead to position in [0,1) of the loop.
func (e *Engine) Seek(position float64) {
	e.playhead.Seek(position)
	e.player.SetPlayhead(e.playhead.Progress())
}

func (e *Engine) resume() {
	if e.device == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.device.Resume(ctx); err != nil {
		e.log.WithError(err).Warn("audio device not ready")
		e.player.SetAudioReady(false)
		return
	}
	e.player.SetAudioReady(true)
}

func (e *Engine) startTransport() {
	start := e.clock.Now() + e.timing.Priming
	e.scheduler.Start(e.notes)
	e.playhead.StartAt(start)
}

func (e *Engine) onNote(index int) {
	if !e.player.State().IsPlaying {
		return
	}
	e.player.UpdateNote(index)
}

func (e *Engine) onEnded() {
	e.playhead.Stop()
	e.player.Stop()
	e.emit(Event{Kind: EventEnded})
}

// countdownStep clicks one countdown beat and schedules the next. After the
// final beat the transport starts.
func (e *Engine) countdownStep(value int) {
	e.player.SetCountdown(value)
	final := value <= 1
	e.emitter.PlayMetronomeClick(e.clock.Now(), value == e.timing.BeatsPerMeasure, true, true, e.player.MetronomeVolume())
	e.emit(Event{Kind: EventCountdownTick, Value: value, Final: final})

	beat := time.Duration(e.timing.BeatTime(e.timing.ClampTempo(e.player.Tempo())) * float64(time.Second))
	e.countdown = e.loop.AfterFunc(beat, func() {
		e.countdown = nil
		if !e.player.State().IsCountingDown {
			return
		}
		if final {
			e.player.CountdownComplete()
			e.startTransport()
			return
		}
		e.countdownStep(value - 1)
	})
}

func (e *Engine) cancelCountdown() {
	if e.countdown != nil {
		e.countdown.Stop()
		e.countdown = nil
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
