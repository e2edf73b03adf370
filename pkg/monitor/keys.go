package monitor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Top     key.Binding
	Bottom  key.Binding
	Scan    key.Binding
	Filter  key.Binding
	Clear   key.Binding
	CheckIn key.Binding
	Paid    key.Binding
	Sync    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
	Top:     key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Scan:    key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "scan")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	CheckIn: key.NewBinding(key.WithKeys("c", " "), key.WithHelp("c", "check in")),
	Paid:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paid")),
	Sync:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "sync")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.CheckIn, k.Paid, k.Filter, k.Sync, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Scan, k.CheckIn, k.Paid},
		{k.Filter, k.Clear, k.Sync, k.Quit},
	}
}

var (
	scanKeys = []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
	}
	filterKeys = []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "keep")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	}
)
