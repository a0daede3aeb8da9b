package pattern

import (
	"errors"
	"math"
	"testing"
)

func TestFrequency(t *testing.T) {
	tests := []struct {
		s    String
		fret int
		want float64
	}{
		{StringE, 0, 41.2},
		{StringE, 12, 82.4},
		{StringA, 0, 55.0},
		{StringA, 12, 110.0},
		{StringD, 0, 73.42},
		{StringG, 0, 98.0},
		{StringE, 5, 41.2 * math.Pow(2, 5.0/12)},
	}

	for _, tt := range tests {
		got := Frequency(tt.s, tt.fret)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Frequency(%v, %d) = %v, want %v", tt.s, tt.fret, got, tt.want)
		}
	}
}

func TestFrequencyIsDeterministic(t *testing.T) {
	a := Note{String: StringA, Fret: 7}.Frequency()
	b := Frequency(StringA, 7)
	if a != b {
		t.Fatalf("note frequency %v differs from Frequency %v", a, b)
	}
}

func TestParseRoot(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"C", 0},
		{"E", 4},
		{"F#", 6},
		{"Gb", 6},
		{"B#", 0},
		{"cb", 11},
		{" a ", 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoot(tt.name)
			if err != nil {
				t.Fatalf("ParseRoot(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseRoot(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "H", "E$"} {
		if _, err := ParseRoot(bad); !errors.Is(err, ErrUnknownRoot) {
			t.Errorf("ParseRoot(%q) error = %v, want ErrUnknownRoot", bad, err)
		}
	}
}

func TestGenerateNotes(t *testing.T) {
	notes, err := GenerateNotes("root-fifth-octave", "A")
	if err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}
	if len(notes) != 12 {
		t.Fatalf("expected 12 notes, got %d", len(notes))
	}
	// A on the E string is fret 5, the fifth (E) on the A string is fret 7,
	// and the octave on the D string is fret 7.
	want := []Note{
		{String: StringE, Fret: 5, Index: 0},
		{String: StringA, Fret: 7, Index: 1},
		{String: StringD, Fret: 7, Index: 2},
	}
	for i, w := range want {
		if notes[i] != w {
			t.Errorf("note %d = %+v, want %+v", i, notes[i], w)
		}
	}
	for i, n := range notes {
		if n.Index != i {
			t.Errorf("note %d has index %d", i, n.Index)
		}
		if n.Fret < 0 {
			t.Errorf("note %d has negative fret %d", i, n.Fret)
		}
	}
}

func TestGenerateNotesWholeMeasures(t *testing.T) {
	for _, p := range Patterns {
		notes, err := GenerateNotes(p.ID, "E")
		if err != nil {
			t.Fatalf("%s: %v", p.ID, err)
		}
		if len(notes)%12 != 0 {
			t.Errorf("%s: %d notes is not a whole number of triplet measures", p.ID, len(notes))
		}
	}
}

func TestGenerateNotesErrors(t *testing.T) {
	if _, err := GenerateNotes("nope", "E"); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("expected ErrUnknownPattern, got %v", err)
	}
	if _, err := GenerateNotes("major-triad", "X"); !errors.Is(err, ErrUnknownRoot) {
		t.Errorf("expected ErrUnknownRoot, got %v", err)
	}
}

func TestPitchName(t *testing.T) {
	if got := PitchName(Note{String: StringE}.Pitch()); got != "E1" {
		t.Errorf("open E = %s, want E1", got)
	}
	if got := PitchName(Note{String: StringG, Fret: 5}.Pitch()); got != "C3" {
		t.Errorf("G string fret 5 = %s, want C3", got)
	}
}
