package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play          key.Binding
	Faster        key.Binding
	Slower        key.Binding
	Metronome     key.Binding
	Loop          key.Binding
	Mute          key.Binding
	Countdown     key.Binding
	BassUp        key.Binding
	BassDown      key.Binding
	MetronomeUp   key.Binding
	MetronomeDown key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Play: key.NewBinding(
			key.WithKeys(" ", "space", "p"),
			key.WithHelp("space", "play/stop"),
		),
		Faster: key.NewBinding(
			key.WithKeys("up", "+", "="),
			key.WithHelp("↑/+", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("down", "-", "_"),
			key.WithHelp("↓/-", "slower"),
		),
		Metronome: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "metronome"),
		),
		Loop: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "loop"),
		),
		Mute: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "mute notes"),
		),
		Countdown: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "count-in"),
		),
		BassUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "bass louder"),
		),
		BassDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "bass softer"),
		),
		MetronomeUp: key.NewBinding(
			key.WithKeys("}"),
			key.WithHelp("}", "click louder"),
		),
		MetronomeDown: key.NewBinding(
			key.WithKeys("{"),
			key.WithHelp("{", "click softer"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Faster, k.Slower, k.Metronome, k.Loop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Faster, k.Slower},
		{k.Metronome, k.Loop, k.Mute, k.Countdown},
		{k.BassUp, k.BassDown, k.MetronomeUp, k.MetronomeDown},
		{k.Help, k.Quit},
	}
}
