package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/icco/basstrainer/internal/config"
	"github.com/icco/basstrainer/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logFile    string
	debug      bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "basstrainer",
	Short: "A terminal bass practice trainer",
	Long: `basstrainer plays bass exercises against a metronome and highlights each
note on a tablature view as it sounds.

A second terminal can mirror the transport with "basstrainer popout", and exercises
can be exported as MIDI or rendered to WAV.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logCloser, err = logging.Setup(logFile, debug)
		if err != nil {
			return err
		}
		logrus.WithField("command", cmd.Name()).Debug("starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/basstrainer/config.json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default ~/.config/basstrainer/basstrainer.log)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
