package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/midictl"
	"github.com/icco/basstrainer/internal/midiout"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/icco/basstrainer/internal/tui"
	"github.com/icco/basstrainer/internal/windowsync"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var practice struct {
	exerciseFlags
	listen        string
	midiOut       string
	midiIn        string
	virtualIn     string
	headlessAudio bool
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice an exercise in the terminal",
	Long: `Practice an exercise with audio, metronome and a live tablature view.

The session also serves the sync endpoint a popout connects to, and can be
driven from a MIDI controller.

Example:
  basstrainer practice --pattern major-triad --root C --tempo 90
  basstrainer practice --virtual-in "Bass Trainer Remote"
`,
	Args: cobra.NoArgs,
	RunE: runPractice,
}

func init() {
	practice.register(practiceCmd)
	practiceCmd.Flags().StringVar(&practice.listen, "listen", "", "sync server address (default from config, 127.0.0.1:7318)")
	practiceCmd.Flags().StringVar(&practice.midiOut, "midi-out", "", "mirror notes and clicks to this MIDI output port")
	practiceCmd.Flags().StringVar(&practice.midiIn, "midi-in", "", "take transport commands from this MIDI input port")
	practiceCmd.Flags().StringVar(&practice.virtualIn, "virtual-in", "", "create a virtual MIDI input with this name for transport commands")
	practiceCmd.Flags().BoolVar(&practice.headlessAudio, "headless-audio", false, "don't open the audio device")
	rootCmd.AddCommand(practiceCmd)
}

func runPractice(cmd *cobra.Command, args []string) error {
	log := logrus.WithField("component", "practice")

	ex, err := practice.resolve(cfg)
	if err != nil {
		return err
	}
	listen := pick(practice.listen, cfg.Sync.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := runloop.New(runloop.DefaultFPS)
	go loop.Run(ctx)

	var (
		clock audio.Clock  = audio.Null{}
		out   audio.Output = audio.Null{}
	)
	opts := []engine.Option{engine.WithTiming(ex.timing), engine.WithState(ex.state)}
	if !practice.headlessAudio {
		dev, err := audio.OpenDevice(audio.DefaultSampleRate)
		if err != nil {
			log.WithError(err).Warn("no audio output, running silent")
		} else {
			defer dev.Close()
			clock, out = dev, dev
			opts = append(opts, engine.WithDevice(dev))
		}
	}

	var emitter engine.Emitter = audio.NewSynth(out)
	if name := pick(practice.midiOut, cfg.MIDI.Out); name != "" {
		send, err := midiout.OpenPort(name)
		if err != nil {
			return err
		}
		emitter = midiout.Tee{emitter, midiout.NewEmitter(loop, clock, send)}
	}

	mirror := &tui.Mirror{}
	link := windowsync.New(windowsync.RoleMain, loop, cfg.Sync.Origin)
	server := windowsync.NewServer(loop, link, cfg.Sync.Origin)
	server.SetAddress("http://" + listen)

	var (
		e           *engine.Engine
		stopPublish func()
	)
	loop.Call(func() {
		e = engine.New(loop, clock, emitter, opts...)
		e.SetNotes(ex.header, ex.notes)

		link.OnCommand = func(payload json.RawMessage) {
			var c engine.Command
			if err := json.Unmarshal(payload, &c); err != nil {
				log.WithError(err).Debug("bad command payload")
				return
			}
			if err := e.Execute(c); err != nil {
				log.WithError(err).Warn("popout command failed")
			}
		}
		link.OnPartner = func() {
			if err := link.SendState(e.Snapshot()); err != nil {
				log.WithError(err).Debug("initial state not sent")
			}
		}
		link.OnConnectionChange = func(connected bool) {
			mirror.SetConnected(connected)
			log.WithField("connected", connected).Info("popout connection changed")
		}
		e.Subscribe(func(s engine.Snapshot) {
			if !link.Connected() {
				return
			}
			if err := link.SendState(s); err != nil {
				log.WithError(err).Debug("state update not sent")
			}
		})
		link.Start(nil)
		stopPublish = tui.Publish(loop, e, mirror)
	})
	go logEvents(e.Events())

	go func() {
		if err := server.ListenAndServe(listen); err != nil {
			log.WithError(err).Error("sync server stopped")
		}
	}()

	stopMIDI, err := listenController(loop, e)
	if err != nil {
		return err
	}
	defer stopMIDI()

	send := func(c engine.Command) {
		loop.Post(func() {
			if err := e.Execute(c); err != nil {
				log.WithError(err).Warn("command failed")
			}
		})
	}
	if err := runProgram(tui.New(mirror, send, tui.Options{})); err != nil {
		return err
	}

	var final engine.Snapshot
	loop.Call(func() {
		stopPublish()
		e.Stop()
		e.Silence()
		link.Close()
		final = e.Snapshot()
	})
	shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	if err := server.Shutdown(shutdown); err != nil {
		log.WithError(err).Warn("sync server shutdown")
	}

	cfg.Audio.Tempo = final.Tempo
	cfg.Audio.BassVolume = final.BassVolume
	cfg.Audio.MetronomeVolume = final.MetronomeVolume
	cfg.Audio.Metronome = final.IsMetronomeEnabled
	cfg.Audio.Loop = final.IsLooping
	cfg.Audio.Countdown = final.IsCountdownEnabled
	cfg.Audio.MuteNotes = final.IsNotesMuted
	if err := cfg.Save(); err != nil {
		log.WithError(err).Warn("settings not saved")
	}
	return nil
}

// listenController connects the configured MIDI input, or a virtual one,
// to the engine.
func listenController(loop runloop.Loop, target midictl.Target) (stop func(), err error) {
	stops := []func(){}
	stop = func() {
		for _, s := range stops {
			s()
		}
	}

	if name := pick(practice.midiIn, cfg.MIDI.In); name != "" {
		s, err := midictl.Listen(name, loop, target)
		if err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}

	if practice.virtualIn != "" {
		driver, err := rtmididrv.New()
		if err != nil {
			stop()
			return nil, fmt.Errorf("failed to initialize MIDI driver: %w", err)
		}
		port, err := driver.OpenVirtualIn(practice.virtualIn)
		if err != nil {
			driver.Close()
			stop()
			return nil, fmt.Errorf("failed to create virtual MIDI port: %w", err)
		}
		s, err := midictl.ListenTo(port, loop, target)
		if err != nil {
			driver.Close()
			stop()
			return nil, err
		}
		stops = append(stops, s, func() { driver.Close() })
	}
	return stop, nil
}

func logEvents(events <-chan engine.Event) {
	log := logrus.WithField("component", "events")
	for ev := range events {
		entry := log.WithField("event", ev.Kind.String())
		if ev.Kind == engine.EventCountdownTick {
			entry = entry.WithFields(logrus.Fields{"value": ev.Value, "final": ev.Final})
		}
		entry.Debug("transport event")
	}
}

// runProgram runs a full-screen view until it quits or the process is
// interrupted.
func runProgram(m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		<-c
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running view: %w", err)
	}
	return nil
}
