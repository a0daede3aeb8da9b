// Package pattern holds the bass exercise table and turns a pattern and root
// note into the note sequence the scheduler plays.
package pattern

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// String identifies one of the four bass strings.
type String int

const (
	StringE String = iota
	StringA
	StringD
	StringG
)

// NumStrings is the number of strings on a standard bass.
const NumStrings = 4

var (
	// ErrUnknownPattern is returned for a pattern ID not in the table.
	ErrUnknownPattern = errors.New("unknown pattern")
	// ErrUnknownRoot is returned for a root note name that can't be parsed.
	ErrUnknownRoot = errors.New("unknown root note")
)

// openStringFrequency is the frequency in Hz of each open string.
var openStringFrequency = [NumStrings]float64{41.20, 55.00, 73.42, 98.00}

// openStringPitch is the MIDI pitch of each open string: E1 A1 D2 G2.
var openStringPitch = [NumStrings]int{28, 33, 38, 43}

var stringNames = [NumStrings]string{"E", "A", "D", "G"}

func (s String) String() string {
	if s < 0 || int(s) >= NumStrings {
		return fmt.Sprintf("String(%d)", int(s))
	}
	return stringNames[s]
}

// OpenFrequency returns the open-string frequency in Hz.
func (s String) OpenFrequency() float64 {
	if s < 0 || int(s) >= NumStrings {
		return 0
	}
	return openStringFrequency[s]
}

// OpenPitch returns the MIDI pitch of the open string.
func (s String) OpenPitch() int {
	if s < 0 || int(s) >= NumStrings {
		return 0
	}
	return openStringPitch[s]
}

// Frequency returns the equal-tempered frequency of fret on string s.
func Frequency(s String, fret int) float64 {
	return s.OpenFrequency() * math.Pow(2, float64(fret)/12)
}

// Note is one position in an exercise. Notes are immutable once generated.
type Note struct {
	String String `json:"string"`
	Fret   int    `json:"fret"`
	Index  int    `json:"index"`
}

// Frequency returns the note's frequency in Hz.
func (n Note) Frequency() float64 {
	return Frequency(n.String, n.Fret)
}

// Pitch returns the note's MIDI pitch.
func (n Note) Pitch() int {
	return n.String.OpenPitch() + n.Fret
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName returns a name like "E1" for a MIDI pitch.
func PitchName(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?%d", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], (pitch/12)-1)
}

// ParseRoot converts a root name such as "E", "F#" or "Bb" into a pitch class 0-11.
func ParseRoot(name string) (int, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnknownRoot)
	}
	base := strings.ToUpper(n[:1])
	pc := -1
	for i, nn := range noteNames {
		if nn == base {
			pc = i
			break
		}
	}
	if pc < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRoot, name)
	}
	for _, acc := range n[1:] {
		switch acc {
		case '#':
			pc++
		case 'b':
			pc--
		default:
			return 0, fmt.Errorf("%w: %q", ErrUnknownRoot, name)
		}
	}
	return ((pc % 12) + 12) % 12, nil
}

// Roots lists the root names offered by the UI.
var Roots = []string{"E", "F", "F#", "G", "G#", "A", "A#", "B", "C", "C#", "D", "D#"}
