package pattern

import "fmt"

// Pattern describes an exercise as intervals above the root and the string
// each interval is played on.
type Pattern struct {
	ID         string
	Name       string
	Category   string
	Difficulty int
	Intervals  []int
	Strings    []String
}

// Patterns is the static exercise table. Every entry fills whole measures of
// triplets (12 notes per measure).
var Patterns = []Pattern{
	{
		ID:         "root-fifth-octave",
		Name:       "Root-Fifth-Octave",
		Category:   "foundations",
		Difficulty: 1,
		Intervals:  []int{0, 7, 12, 0, 7, 12, 0, 7, 12, 12, 7, 0},
		Strings:    []String{StringE, StringA, StringD, StringE, StringA, StringD, StringE, StringA, StringD, StringD, StringA, StringE},
	},
	{
		ID:         "major-triad",
		Name:       "Major Triad Arpeggio",
		Category:   "arpeggios",
		Difficulty: 1,
		Intervals:  []int{0, 4, 7, 12, 7, 4, 0, 4, 7, 12, 7, 4},
		Strings:    []String{StringE, StringA, StringA, StringD, StringA, StringA, StringE, StringA, StringA, StringD, StringA, StringA},
	},
	{
		ID:         "minor-triad",
		Name:       "Minor Triad Arpeggio",
		Category:   "arpeggios",
		Difficulty: 1,
		Intervals:  []int{0, 3, 7, 12, 7, 3, 0, 3, 7, 12, 7, 3},
		Strings:    []String{StringE, StringE, StringA, StringD, StringA, StringE, StringE, StringE, StringA, StringD, StringA, StringE},
	},
	{
		ID:         "dominant-seventh",
		Name:       "Dominant 7th Arpeggio",
		Category:   "arpeggios",
		Difficulty: 2,
		Intervals:  []int{0, 4, 7, 10, 12, 10, 7, 4, 0, 4, 7, 10},
		Strings:    []String{StringE, StringA, StringA, StringD, StringD, StringD, StringA, StringA, StringE, StringA, StringA, StringD},
	},
	{
		ID:         "major-scale",
		Name:       "Major Scale Triplets",
		Category:   "scales",
		Difficulty: 2,
		Intervals: []int{
			0, 2, 4, 5, 7, 9, 11, 12, 14, 12, 11, 9,
			7, 5, 4, 2, 0, 2, 4, 5, 7, 5, 4, 2,
		},
		Strings: []String{
			StringE, StringE, StringA, StringA, StringA, StringD, StringD, StringD, StringG, StringD, StringD, StringD,
			StringA, StringA, StringA, StringE, StringE, StringE, StringA, StringA, StringA, StringA, StringA, StringE,
		},
	},
	{
		ID:         "chromatic-walk",
		Name:       "Chromatic Walk",
		Category:   "technique",
		Difficulty: 3,
		Intervals: []int{
			0, 1, 2, 3, 5, 6, 7, 8, 10, 11, 12, 13,
			12, 11, 10, 8, 7, 6, 5, 3, 2, 1, 0, -1,
		},
		Strings: []String{
			StringE, StringE, StringE, StringE, StringA, StringA, StringA, StringA, StringD, StringD, StringD, StringD,
			StringD, StringD, StringD, StringA, StringA, StringA, StringA, StringE, StringE, StringE, StringE, StringE,
		},
	},
}

// Lookup returns the pattern with the given ID.
func Lookup(id string) (Pattern, error) {
	for _, p := range Patterns {
		if p.ID == id {
			return p, nil
		}
	}
	return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownPattern, id)
}

// rootPitch places the root on the E string at the lowest fret.
func rootPitch(pc int) int {
	fret := ((pc-StringE.OpenPitch()%12)%12 + 12) % 12
	return StringE.OpenPitch() + fret
}

// GenerateNotes builds the note sequence for a pattern played from root.
// Frets that would fall below the nut are moved up an octave.
func GenerateNotes(patternID, root string) ([]Note, error) {
	p, err := Lookup(patternID)
	if err != nil {
		return nil, err
	}
	pc, err := ParseRoot(root)
	if err != nil {
		return nil, err
	}
	if len(p.Intervals) != len(p.Strings) {
		return nil, fmt.Errorf("pattern %q: %d intervals but %d strings", p.ID, len(p.Intervals), len(p.Strings))
	}

	base := rootPitch(pc)
	notes := make([]Note, len(p.Intervals))
	for i, interval := range p.Intervals {
		s := p.Strings[i]
		fret := base + interval - s.OpenPitch()
		for fret < 0 {
			fret += 12
		}
		notes[i] = Note{String: s, Fret: fret, Index: i}
	}
	return notes, nil
}
