package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines global and pane-specific bindings.
type KeyMap struct {
	Quit        key.Binding
	ToggleFocus key.Binding
	Up          key.Binding
	Down        key.Binding
	PageDown    key.Binding
	PageUp      key.Binding
	Open        key.Binding
	NextChange  key.Binding
	PrevChange  key.Binding
	Pin         key.Binding
	Unpin       key.Binding
	CopyPatch   key.Binding
	Refresh     key.Binding
	Top         key.Binding
	Bottom      key.Binding
	HideFiles   key.Binding
	Help        key.Binding
}

func defaultKeyMap() KeyMap {
	return KeyMap{
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		ToggleFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "move up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "move down")),
		PageDown:    key.NewBinding(key.WithKeys("ctrl+f", "pgdown"), key.WithHelp("ctrl-f", "page down")),
		PageUp:      key.NewBinding(key.WithKeys("ctrl+b", "pgup"), key.WithHelp("ctrl-b", "page up")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open file")),
		NextChange:  key.NewBinding(key.WithKeys("]", "n"), key.WithHelp("]/n", "next change")),
		PrevChange:  key.NewBinding(key.WithKeys("[", "N"), key.WithHelp("[/N", "previous change")),
		Pin:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin current text as base")),
		Unpin:       key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "unpin base")),
		CopyPatch:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy patch")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Top:         key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		HideFiles:   key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "hide file list")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}
