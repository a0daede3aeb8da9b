package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/icco/basstrainer/internal/tui"
	"github.com/icco/basstrainer/internal/windowsync"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var popout struct {
	main   string
	listen string
}

var popoutCmd = &cobra.Command{
	Use:   "popout",
	Short: "Mirror a running practice session",
	Long: `Open a second view of a practice session running in another terminal.

The popout shows the same transport state and its keys control the main
session. It reconnects on its own if the main session goes away and returns.

Example:
  basstrainer popout --main http://127.0.0.1:7318
`,
	Args: cobra.NoArgs,
	RunE: runPopout,
}

func init() {
	popoutCmd.Flags().StringVar(&popout.main, "main", "", "main session URL (default http:// plus the configured listen address)")
	popoutCmd.Flags().StringVar(&popout.listen, "listen", "127.0.0.1:7319", "address this popout receives updates on")
	rootCmd.AddCommand(popoutCmd)
}

func runPopout(cmd *cobra.Command, args []string) error {
	log := logrus.WithField("component", "popout")
	mainURL := pick(popout.main, "http://"+cfg.Sync.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := runloop.New(runloop.DefaultFPS)
	go loop.Run(ctx)

	mirror := &tui.Mirror{}
	link := windowsync.New(windowsync.RolePopout, loop, cfg.Sync.Origin)
	server := windowsync.NewServer(loop, link, cfg.Sync.Origin)
	server.SetAddress("http://" + popout.listen)
	partner := server.Window(mainURL)

	go func() {
		if err := server.ListenAndServe(popout.listen); err != nil {
			log.WithError(err).Error("sync server stopped")
		}
	}()

	loop.Call(func() {
		link.OnState = func(payload json.RawMessage) {
			var s engine.Snapshot
			if err := json.Unmarshal(payload, &s); err != nil {
				log.WithError(err).Debug("bad state payload")
				return
			}
			mirror.Store(s)
		}
		link.OnConnectionChange = func(connected bool) {
			mirror.SetConnected(connected)
			log.WithField("connected", connected).Info("main connection changed")
		}
		link.Start(partner)
	})

	send := func(c engine.Command) {
		loop.Post(func() {
			if err := link.SendCommand(c); err != nil {
				log.WithError(err).Warn("command not sent")
			}
		})
	}
	if err := runProgram(tui.New(mirror, send, tui.Options{Popout: true})); err != nil {
		return err
	}

	loop.Call(link.Close)
	shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	return server.Shutdown(shutdown)
}
