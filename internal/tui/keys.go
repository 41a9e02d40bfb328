package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Filter   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func k(keys []string, help, desc string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(help, desc),
	)
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       k([]string{"up", "k"}, "↑/k", "up"),
		Down:     k([]string{"down", "j"}, "↓/j", "down"),
		PageUp:   k([]string{"pgup", "b"}, "pgup/b", "page up"),
		PageDown: k([]string{"pgdown", "f", " "}, "pgdn/f", "page down"),
		Top:      k([]string{"home", "g"}, "g", "top"),
		Bottom:   k([]string{"end", "G"}, "G", "bottom"),
		Filter:   k([]string{"tab"}, "tab", "cycle filter"),
		Help:     k([]string{"?"}, "?", "help"),
		Quit:     k([]string{"q", "ctrl+c", "esc"}, "q", "quit"),
	}
}

// ShortHelp implements help.KeyMap
func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Filter, km.Help, km.Quit}
}

// FullHelp implements help.KeyMap
func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.PageUp, km.PageDown},
		{km.Top, km.Bottom, km.Filter},
		{km.Help, km.Quit},
	}
}

// inspectKeys hides bindings the tree view does not use
type inspectKeys struct{ KeyMap }

func (km inspectKeys) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Top, km.Bottom, km.Help, km.Quit}
}

func (km inspectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.PageUp, km.PageDown},
		{km.Top, km.Bottom},
		{km.Help, km.Quit},
	}
}
