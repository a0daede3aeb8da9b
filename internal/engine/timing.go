// Package engine is the playback core: the lookahead scheduler, the loop
// playhead, the player state machine and the Engine that orchestrates them.
//
// Everything in this package runs on a single runloop.Loop. None of it is safe
// to call from other goroutines; post onto the loop instead.
package engine

import (
	"fmt"
	"strings"
)

// Subdivision is the number of notes per beat.
type Subdivision int

const (
	Quarter   Subdivision = 1
	Eighth    Subdivision = 2
	Triplet   Subdivision = 3
	Sixteenth Subdivision = 4
)

var subdivisionNames = map[Subdivision]string{
	Quarter:   "quarter",
	Eighth:    "eighth",
	Triplet:   "triplet",
	Sixteenth: "sixteenth",
}

func (s Subdivision) String() string {
	if name, ok := subdivisionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Subdivision(%d)", int(s))
}

// ParseSubdivision accepts a mode name ("triplet") or a count ("3").
func ParseSubdivision(v string) (Subdivision, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for s, name := range subdivisionNames {
		if v == name || v == fmt.Sprint(int(s)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown subdivision %q", v)
}

// Timing holds the constants the scheduler, playhead and countdown are built
// with.
type Timing struct {
	// Lookahead is how far ahead of the clock notes are committed, in seconds.
	Lookahead float64
	// Priming delays the first note of a run, in seconds.
	Priming float64

	BeatsPerMeasure int
	Subdivision     Subdivision
	LoopMeasures    int

	MinTempo int
	MaxTempo int
}

// DefaultTiming returns the standard 4/4 triplet setup.
func DefaultTiming() Timing {
	return Timing{
		Lookahead:       0.1,
		Priming:         0.1,
		BeatsPerMeasure: 4,
		Subdivision:     Triplet,
		LoopMeasures:    1,
		MinTempo:        40,
		MaxTempo:        200,
	}
}

// NoteTime is the spacing between consecutive notes at tempo.
func (t Timing) NoteTime(tempo int) float64 {
	return (60.0 / float64(tempo)) / float64(t.Subdivision)
}

// BeatTime is the length of one beat at tempo.
func (t Timing) BeatTime(tempo int) float64 {
	return 60.0 / float64(tempo)
}

// LoopDuration is the length of one loop of LoopMeasures measures at tempo.
func (t Timing) LoopDuration(tempo int) float64 {
	return t.BeatTime(tempo) * float64(t.BeatsPerMeasure*t.LoopMeasures)
}

// NotesPerLoop is the number of notes in one loop.
func (t Timing) NotesPerLoop() int {
	return t.BeatsPerMeasure * t.LoopMeasures * int(t.Subdivision)
}

// ClampTempo bounds tempo to [MinTempo, MaxTempo].
func (t Timing) ClampTempo(tempo int) int {
	if tempo < t.MinTempo {
		return t.MinTempo
	}
	if tempo > t.MaxTempo {
		return t.MaxTempo
	}
	return tempo
}

// beatPosition derives the beat in the measure and the subdivision in the
// beat for note index.
func (t Timing) beatPosition(index int) (beat, sub int) {
	subdiv := int(t.Subdivision)
	if subdiv <= 0 || index < 0 {
		return 0, 0
	}
	beat = index / subdiv
	if t.BeatsPerMeasure > 0 {
		beat %= t.BeatsPerMeasure
	}
	return beat, index % subdiv
}
