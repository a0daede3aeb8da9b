package engine

// State is the transport state shown by the views and mirrored to the popout.
type State struct {
	IsPlaying          bool    `json:"isPlaying"`
	IsCountingDown     bool    `json:"isCountingDown"`
	CountdownValue     int     `json:"countdownValue"`
	CurrentNoteIndex   int     `json:"currentNoteIndex"`
	CurrentBeat        int     `json:"currentBeat"`
	CurrentTriplet     int     `json:"currentTriplet"`
	Tempo              int     `json:"tempo"`
	IsLooping          bool    `json:"isLooping"`
	IsMetronomeEnabled bool    `json:"isMetronomeEnabled"`
	IsNotesMuted       bool    `json:"isNotesMuted"`
	IsCountdownEnabled bool    `json:"isCountdownEnabled"`
	BassVolume         float64 `json:"bassVolume"`
	MetronomeVolume    float64 `json:"metronomeVolume"`
	IsAudioReady       bool    `json:"isAudioReady"`
	Playhead           float64 `json:"playhead"`
}

// Active reports whether the transport is playing or counting down.
func (s State) Active() bool {
	return s.IsPlaying || s.IsCountingDown
}

// Player is the transport state machine. Its methods only change fields;
// starting and stopping the scheduler is the caller's job.
type Player struct {
	state     State
	timing    Timing
	observers []func(State)
}

// NewPlayer returns an idle player with the given initial settings.
func NewPlayer(timing Timing, initial State) *Player {
	initial.IsPlaying = false
	initial.IsCountingDown = false
	initial.CountdownValue = 0
	initial.CurrentNoteIndex = -1
	initial.CurrentBeat = 0
	initial.CurrentTriplet = 0
	initial.Playhead = 0
	return &Player{state: initial, timing: timing}
}

// DefaultState is the settings a fresh session starts with.
func DefaultState() State {
	return State{
		CurrentNoteIndex:   -1,
		Tempo:              80,
		IsLooping:          true,
		IsMetronomeEnabled: true,
		BassVolume:         0.8,
		MetronomeVolume:    0.5,
	}
}

// Subscribe registers fn to be called after every discrete state change.
func (p *Player) Subscribe(fn func(State)) {
	p.observers = append(p.observers, fn)
}

// State returns a copy of the current state.
func (p *Player) State() State {
	return p.state
}

func (p *Player) notify() {
	for _, fn := range p.observers {
		fn(p.state)
	}
}

// Play starts the transport, through a countdown if enabled.
func (p *Player) Play() {
	if p.state.IsCountdownEnabled {
		p.state.IsPlaying = false
		p.state.IsCountingDown = true
		p.state.CountdownValue = p.timing.BeatsPerMeasure
	} else {
		p.state.IsPlaying = true
		p.state.IsCountingDown = false
		p.state.CountdownValue = 0
	}
	p.state.CurrentNoteIndex = -1
	p.notify()
}

// PlayImmediate starts the transport and skips any countdown.
func (p *Player) PlayImmediate() {
	p.state.IsPlaying = true
	p.state.IsCountingDown = false
	p.state.CountdownValue = 0
	p.state.CurrentNoteIndex = -1
	p.notify()
}

// SetCountdown sets the value shown during a countdown.
func (p *Player) SetCountdown(value int) {
	if !p.state.IsCountingDown {
		return
	}
	p.state.CountdownValue = value
	p.notify()
}

// CountdownComplete moves from counting down to playing. Outside a countdown
// it does nothing.
func (p *Player) CountdownComplete() {
	if !p.state.IsCountingDown {
		return
	}
	p.state.IsCountingDown = false
	p.state.CountdownValue = 0
	p.state.IsPlaying = true
	p.state.CurrentNoteIndex = -1
	p.notify()
}

// Stop returns to idle from any state.
func (p *Player) Stop() {
	p.state.IsPlaying = false
	p.state.IsCountingDown = false
	p.state.CountdownValue = 0
	p.state.CurrentNoteIndex = -1
	p.state.CurrentBeat = 0
	p.state.CurrentTriplet = 0
	p.state.Playhead = 0
	p.notify()
}

// UpdateNote records the sounding note and derives the beat position.
func (p *Player) UpdateNote(index int) {
	p.state.CurrentNoteIndex = index
	p.state.CurrentBeat, p.state.CurrentTriplet = p.timing.beatPosition(index)
	p.notify()
}

// SetPlayhead stores the continuous loop position. Observers are not
// notified; views poll it every frame.
func (p *Player) SetPlayhead(progress float64) {
	p.state.Playhead = progress
}

// SetTempo stores tempo as given; bounds are enforced by the caller.
func (p *Player) SetTempo(tempo int) {
	p.state.Tempo = tempo
	p.notify()
}

func (p *Player) ToggleLoop() {
	p.state.IsLooping = !p.state.IsLooping
	p.notify()
}

func (p *Player) ToggleMetronome() {
	p.state.IsMetronomeEnabled = !p.state.IsMetronomeEnabled
	p.notify()
}

func (p *Player) ToggleNotesMuted() {
	p.state.IsNotesMuted = !p.state.IsNotesMuted
	p.notify()
}

func (p *Player) ToggleCountdown() {
	p.state.IsCountdownEnabled = !p.state.IsCountdownEnabled
	p.notify()
}

func (p *Player) SetBassVolume(v float64) {
	p.state.BassVolume = v
	p.notify()
}

func (p *Player) SetMetronomeVolume(v float64) {
	p.state.MetronomeVolume = v
	p.notify()
}

func (p *Player) SetAudioReady(ready bool) {
	if p.state.IsAudioReady == ready {
		return
	}
	p.state.IsAudioReady = ready
	p.notify()
}

// Settings read by the scheduler and playhead.

func (p *Player) Tempo() int               { return p.state.Tempo }
func (p *Player) Looping() bool            { return p.state.IsLooping }
func (p *Player) NotesMuted() bool         { return p.state.IsNotesMuted }
func (p *Player) MetronomeEnabled() bool   { return p.state.IsMetronomeEnabled }
func (p *Player) BassVolume() float64      { return p.state.BassVolume }
func (p *Player) MetronomeVolume() float64 { return p.state.MetronomeVolume }
