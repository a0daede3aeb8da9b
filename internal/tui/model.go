// Package tui renders the practice view in the terminal. The same model
// serves the main window, which drives a local engine, and the popout, which
// mirrors main over the sync channel.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/icco/basstrainer/internal/engine"
)

const (
	// FPS is the view refresh rate.
	FPS = 30

	tempoStep  = 5
	volumeStep = 0.1
	maxBar     = 72
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/FPS, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// SendFunc delivers a transport command. It must not block.
type SendFunc func(engine.Command)

// Options configures a Model.
type Options struct {
	// Popout marks the mirrored view: commands need a live connection and
	// the playhead is smoothed between pushed updates.
	Popout bool
}

// Model is the bubbletea model for one window.
type Model struct {
	mirror *Mirror
	send   SendFunc
	popout bool

	keys keyMap
	help help.Model
	bar  progress.Model

	spring harmonica.Spring
	pos    float64
	vel    float64

	snap    engine.Snapshot
	ready   bool
	message string
}

// New builds a view reading from mirror and sending commands through send.
func New(mirror *Mirror, send SendFunc, opts Options) Model {
	return Model{
		mirror: mirror,
		send:   send,
		popout: opts.Popout,
		keys:   defaultKeyMap(),
		help:   help.New(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
			progress.WithWidth(48),
		),
		spring: harmonica.NewSpring(harmonica.FPS(FPS), 8.0, 1.0),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.bar.Width = min(msg.Width-4, maxBar)
		return m, nil

	case tickMsg:
		if snap, ok := m.mirror.Load(); ok {
			m.snap = snap
			m.ready = true
		}
		m.advancePlayhead()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		cmd, ok := m.command(msg)
		if !ok {
			return m, nil
		}
		if m.popout && !m.mirror.Connected() {
			m.message = "Main window not connected"
			return m, nil
		}
		m.message = ""
		m.send(cmd)
	}

	return m, nil
}

// command maps a key to an absolute command computed from the last snapshot.
func (m Model) command(msg tea.KeyMsg) (engine.Command, bool) {
	s := m.snap
	switch {
	case key.Matches(msg, m.keys.Play):
		if s.Active() {
			return engine.Command{Name: engine.CmdStop}, true
		}
		return engine.Command{Name: engine.CmdPlay}, true
	case key.Matches(msg, m.keys.Faster):
		return engine.Command{Name: engine.CmdSetTempo, Value: float64(s.Tempo + tempoStep)}, true
	case key.Matches(msg, m.keys.Slower):
		return engine.Command{Name: engine.CmdSetTempo, Value: float64(s.Tempo - tempoStep)}, true
	case key.Matches(msg, m.keys.Metronome):
		return engine.Command{Name: engine.CmdToggleMetronome}, true
	case key.Matches(msg, m.keys.Loop):
		return engine.Command{Name: engine.CmdToggleLoop}, true
	case key.Matches(msg, m.keys.Mute):
		return engine.Command{Name: engine.CmdToggleMute}, true
	case key.Matches(msg, m.keys.Countdown):
		return engine.Command{Name: engine.CmdToggleCountdown}, true
	case key.Matches(msg, m.keys.BassUp):
		return engine.Command{Name: engine.CmdSetBassVolume, Value: step(s.BassVolume, volumeStep)}, true
	case key.Matches(msg, m.keys.BassDown):
		return engine.Command{Name: engine.CmdSetBassVolume, Value: step(s.BassVolume, -volumeStep)}, true
	case key.Matches(msg, m.keys.MetronomeUp):
		return engine.Command{Name: engine.CmdSetMetronomeVolume, Value: step(s.MetronomeVolume, volumeStep)}, true
	case key.Matches(msg, m.keys.MetronomeDown):
		return engine.Command{Name: engine.CmdSetMetronomeVolume, Value: step(s.MetronomeVolume, -volumeStep)}, true
	}
	return engine.Command{}, false
}

func step(v, by float64) float64 {
	return math.Round((v+by)*10) / 10
}

// advancePlayhead moves the drawn playhead toward the snapshot's. The popout
// only hears about the playhead when state is pushed, so it springs toward
// the last known position. Backward moves are wraps or seeks and snap.
func (m *Model) advancePlayhead() {
	target := m.snap.Playhead
	switch {
	case !m.popout, !m.snap.IsPlaying, target < m.pos:
		m.pos, m.vel = target, 0
	default:
		m.pos, m.vel = m.spring.Update(m.pos, m.vel, target)
	}
}

func (m Model) View() string {
	var b strings.Builder

	title := "Bass Trainer"
	if m.popout {
		title += " · popout"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	if !m.ready {
		if m.popout {
			b.WriteString("Waiting for the main window...\n")
		} else {
			b.WriteString("Loading...\n")
		}
		return b.String()
	}

	s := m.snap
	h := s.Header
	name := h.PatternName
	if name == "" {
		name = h.PatternID
	}
	b.WriteString(fmt.Sprintf("%s in %s  %s\n", name, h.Root, labelStyle.Render(h.Subdivision.String())))
	b.WriteString(m.status() + "\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s  %s\n",
		flag("metronome", s.IsMetronomeEnabled),
		flag("loop", s.IsLooping),
		flag("mute", s.IsNotesMuted),
		flag("count-in", s.IsCountdownEnabled),
	))
	b.WriteString(labelStyle.Render(fmt.Sprintf("bass %3.0f%%  click %3.0f%%", s.BassVolume*100, s.MetronomeVolume*100)) + "\n\n")

	current := -1
	if s.IsPlaying {
		current = s.CurrentNoteIndex
	}
	b.WriteString(renderTab(s.Notes, current, int(h.Subdivision), h.BeatsPerMeasure))
	b.WriteString("\n" + m.bar.ViewAs(m.pos) + "\n")

	if m.message != "" {
		b.WriteString("\n" + messageStyle.Render(m.message) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) status() string {
	s := m.snap
	var parts []string
	switch {
	case s.IsCountingDown:
		parts = append(parts, countdownStyle.Render(fmt.Sprintf("Count-in %d", s.CountdownValue)))
	case s.IsPlaying:
		parts = append(parts, onStyle.Render("▶ Playing"))
	default:
		parts = append(parts, offStyle.Render("■ Stopped"))
	}
	parts = append(parts, fmt.Sprintf("♩ = %d", s.Tempo))
	if s.Loops > 0 {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("loop %d", s.Loops+1)))
	}

	if m.popout {
		if m.mirror.Connected() {
			parts = append(parts, onStyle.Render("● linked"))
		} else {
			parts = append(parts, messageStyle.Render("○ disconnected"))
		}
	} else if !s.IsAudioReady {
		parts = append(parts, messageStyle.Render("audio unavailable"))
	}
	return strings.Join(parts, "  ")
}
