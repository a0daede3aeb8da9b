package cmd

import (
	"fmt"

	"github.com/icco/basstrainer/internal/config"
	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/spf13/cobra"
)

// exerciseFlags are the flags shared by every command that plays or writes
// an exercise. Zero values fall back to the config file.
type exerciseFlags struct {
	pattern     string
	root        string
	subdivision string
	tempo       int
}

func (f *exerciseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", "", "pattern ID (see \"basstrainer patterns\")")
	cmd.Flags().StringVarP(&f.root, "root", "r", "", "root note, e.g. A or F#")
	cmd.Flags().StringVarP(&f.subdivision, "subdivision", "s", "", "quarter, eighth, triplet or sixteenth")
	cmd.Flags().IntVarP(&f.tempo, "tempo", "t", 0, "tempo in BPM")
}

type exercise struct {
	header engine.Header
	notes  []pattern.Note
	timing engine.Timing
	state  engine.State
}

// resolve merges flags over c and builds the exercise.
func (f *exerciseFlags) resolve(c *config.Config) (exercise, error) {
	patternID := pick(f.pattern, c.Exercise.Pattern)
	root := pick(f.root, c.Exercise.Root)

	p, err := pattern.Lookup(patternID)
	if err != nil {
		return exercise{}, err
	}
	notes, err := pattern.GenerateNotes(patternID, root)
	if err != nil {
		return exercise{}, err
	}
	sub, err := engine.ParseSubdivision(pick(f.subdivision, c.Exercise.Subdivision))
	if err != nil {
		return exercise{}, err
	}

	timing := engine.DefaultTiming()
	timing.Subdivision = sub
	perMeasure := timing.BeatsPerMeasure * int(sub)
	timing.LoopMeasures = max(1, (len(notes)+perMeasure-1)/perMeasure)

	state := engine.DefaultState()
	state.Tempo = c.Audio.Tempo
	if f.tempo != 0 {
		state.Tempo = f.tempo
	}
	if state.Tempo == 0 {
		state.Tempo = engine.DefaultState().Tempo
	}
	if state.Tempo < timing.MinTempo || state.Tempo > timing.MaxTempo {
		return exercise{}, fmt.Errorf("tempo %d outside %d-%d BPM", state.Tempo, timing.MinTempo, timing.MaxTempo)
	}
	state.BassVolume = c.Audio.BassVolume
	state.MetronomeVolume = c.Audio.MetronomeVolume
	state.IsMetronomeEnabled = c.Audio.Metronome
	state.IsLooping = c.Audio.Loop
	state.IsCountdownEnabled = c.Audio.Countdown
	state.IsNotesMuted = c.Audio.MuteNotes

	return exercise{
		header: engine.Header{
			PatternID:   p.ID,
			PatternName: p.Name,
			Root:        root,
		},
		notes:  notes,
		timing: timing,
		state:  state,
	}, nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
