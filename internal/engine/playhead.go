package engine

import (
	"math"

	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/runloop"
)

// TempoSource provides the current tempo.
type TempoSource interface {
	Tempo() int
}

// Playhead produces a continuous loop position from the audio clock, sampled
// once per frame. It is independent of the scheduler's note index.
type Playhead struct {
	loop   runloop.Loop
	clock  audio.Clock
	tempo  TempoSource
	timing Timing

	startTime float64
	lastLoop  int
	progress  float64
	highlight int
	active    bool
	frame     runloop.FrameID

	// OnProgress receives the position in [0,1) and the coarse note index to
	// highlight.
	OnProgress func(progress float64, highlight int)
	// OnLoopRestart is called each time the position wraps.
	OnLoopRestart func()
}

// NewPlayhead builds a stopped playhead.
func NewPlayhead(loop runloop.Loop, clock audio.Clock, tempo TempoSource, timing Timing) *Playhead {
	return &Playhead{
		loop:   loop,
		clock:  clock,
		tempo:  tempo,
		timing: timing,
	}
}

// Start anchors the loop at the clock's current time.
func (p *Playhead) Start() {
	p.StartAt(p.clock.Now())
}

// StartAt anchors the loop at clock time t. Until the clock reaches t the
// playhead stays at 0.
func (p *Playhead) StartAt(t float64) {
	p.stopFrame()
	p.startTime = t
	p.lastLoop = 0
	p.progress = 0
	p.highlight = 0
	p.active = true
	p.frame = p.loop.RequestFrame(p.update)
}

// Stop cancels the frame loop and rewinds to 0.
func (p *Playhead) Stop() {
	p.stopFrame()
	p.active = false
	p.progress = 0
	p.highlight = 0
}

// Seek moves the playhead to position in [0,1) of the loop by moving the
// anchor backwards from the current clock time.
func (p *Playhead) Seek(position float64) {
	position = math.Max(0, math.Min(position, 1))
	if position == 1 {
		position = 0
	}
	dur := p.loopDuration()
	if dur <= 0 {
		return
	}
	p.startTime = p.clock.Now() - position*dur
	p.lastLoop = 0
	p.progress = position
	p.highlight = p.highlightFor(position)
}

// Progress is the last sampled position.
func (p *Playhead) Progress() float64 {
	return p.progress
}

// Highlight is the last sampled coarse note index.
func (p *Playhead) Highlight() int {
	return p.highlight
}

// Active reports whether the frame loop is running.
func (p *Playhead) Active() bool {
	return p.active
}

func (p *Playhead) stopFrame() {
	if p.frame != 0 {
		p.loop.CancelFrame(p.frame)
		p.frame = 0
	}
}

func (p *Playhead) update() {
	p.frame = 0
	if !p.active {
		return
	}
	p.sample()
	if p.active {
		p.frame = p.loop.RequestFrame(p.update)
	}
}

func (p *Playhead) sample() {
	if !p.clock.Running() {
		return
	}
	elapsed := p.clock.Now() - p.startTime
	if elapsed < 0 {
		return
	}
	dur := p.loopDuration()
	if dur <= 0 {
		return
	}

	p.progress = math.Mod(elapsed, dur) / dur
	p.highlight = p.highlightFor(p.progress)

	if loops := int(math.Floor(elapsed / dur)); loops > p.lastLoop {
		p.lastLoop = loops
		if p.OnLoopRestart != nil {
			p.OnLoopRestart()
		}
	}
	if p.OnProgress != nil {
		p.OnProgress(p.progress, p.highlight)
	}
}

func (p *Playhead) loopDuration() float64 {
	tempo := p.tempo.Tempo()
	if tempo <= 0 {
		return 0
	}
	return p.timing.LoopDuration(tempo)
}

func (p *Playhead) highlightFor(progress float64) int {
	beats := p.timing.BeatsPerMeasure * p.timing.LoopMeasures
	return int(math.Floor(progress*float64(beats))) * int(p.timing.Subdivision)
}
