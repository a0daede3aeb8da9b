package cmd

import (
	"fmt"

	"github.com/icco/basstrainer/internal/midiout"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var export struct {
	exerciseFlags
	loops       int
	noMetronome bool
}

var exportCmd = &cobra.Command{
	Use:   "export <file.mid>",
	Short: "Write an exercise as a Standard MIDI File",
	Long: `Write an exercise as a Standard MIDI File with a bass track on channel 1
and a metronome on channel 10.

Example:
  basstrainer export --pattern chromatic-walk --root E --loops 4 walk.mid
`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	export.register(exportCmd)
	exportCmd.Flags().IntVarP(&export.loops, "loops", "l", 1, "number of times to repeat the exercise")
	exportCmd.Flags().BoolVar(&export.noMetronome, "no-metronome", false, "leave out the click track")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ex, err := export.resolve(cfg)
	if err != nil {
		return err
	}

	err = midiout.ExportFile(args[0], midiout.Exercise{
		Notes:           ex.notes,
		Tempo:           ex.state.Tempo,
		Subdivision:     int(ex.timing.Subdivision),
		BeatsPerMeasure: ex.timing.BeatsPerMeasure,
		Loops:           export.loops,
		Metronome:       !export.noMetronome,
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"path":    args[0],
		"pattern": ex.header.PatternID,
		"tempo":   ex.state.Tempo,
	}).Info("exported MIDI")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d notes at %d BPM)\n", args[0], len(ex.notes)*max(1, export.loops), ex.state.Tempo)
	return nil
}
