package cmd

import (
	"fmt"

	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/render"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var renderFlags struct {
	exerciseFlags
	loops      int
	countdown  bool
	sampleRate int
}

var renderCmd = &cobra.Command{
	Use:   "render <file.wav>",
	Short: "Render an exercise to a WAV file",
	Long: `Render an exercise offline to a 16-bit mono WAV file, with the same
synthesized bass and metronome heard in a practice session.

Example:
  basstrainer render --pattern major-triad --root G --tempo 100 --loops 8 triad.wav
`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().IntVarP(&renderFlags.loops, "loops", "l", 1, "number of times to repeat the exercise")
	renderCmd.Flags().BoolVar(&renderFlags.countdown, "countdown", false, "start with a one measure count-in")
	renderCmd.Flags().IntVar(&renderFlags.sampleRate, "sample-rate", audio.DefaultSampleRate, "output sample rate in Hz")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ex, err := renderFlags.resolve(cfg)
	if err != nil {
		return err
	}

	opts := render.DefaultOptions()
	opts.SampleRate = renderFlags.sampleRate
	opts.Timing = ex.timing
	opts.State = ex.state
	opts.Loops = renderFlags.loops
	opts.Countdown = renderFlags.countdown

	samples, err := render.Render(ex.notes, opts)
	if err != nil {
		return err
	}
	if err := render.WriteFile(args[0], samples, opts.SampleRate); err != nil {
		return err
	}

	seconds := float64(len(samples)) / float64(opts.SampleRate)
	logrus.WithFields(logrus.Fields{
		"path":    args[0],
		"seconds": seconds,
	}).Info("rendered WAV")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.1fs)\n", args[0], seconds)
	return nil
}
