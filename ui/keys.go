package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play        key.Binding
	Stop        key.Binding
	Next        key.Binding
	Prev        key.Binding
	Select      key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	PitchUp     key.Binding
	PitchDown   key.Binding
	TempoUp     key.Binding
	TempoDown   key.Binding
	Loop        key.Binding
	LoopEarlier key.Binding
	LoopLater   key.Binding
	LoopRemove  key.Binding
	Copy        key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Play:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Stop:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		SeekBack:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "rewind")),
		SeekForward: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward")),
		PitchUp:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "pitch up")),
		PitchDown:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "pitch down")),
		TempoUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		TempoDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Loop:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "A|B repeat")),
		LoopEarlier: key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "move loop earlier")),
		LoopLater:   key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "move loop later")),
		LoopRemove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove loop")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Next, k.Prev, k.Loop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Stop, k.Next, k.Prev, k.Select},
		{k.SeekBack, k.SeekForward, k.PitchUp, k.PitchDown, k.TempoUp, k.TempoDown},
		{k.Loop, k.LoopEarlier, k.LoopLater, k.LoopRemove},
		{k.Copy, k.Reload, k.Help, k.Quit},
	}
}
