package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the list key bindings. The filter line and the
// confirmation modal read raw keys instead.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Home      key.Binding
	End       key.Binding
	Toggle    key.Binding
	SelectAll key.Binding
	Filter    key.Binding
	Delete    key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

// DefaultKeyMap labels the select, delete and refresh bindings with the
// page text.
func DefaultKeyMap(selectAll, deleteSelected, refresh string) KeyMap {
	return KeyMap{
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "navigate")),
		Down:      key.NewBinding(key.WithKeys("j", "down")),
		Home:      key.NewBinding(key.WithKeys("g", "home")),
		End:       key.NewBinding(key.WithKeys("G", "end")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", strings.ToLower(selectAll))),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", strings.ToLower(deleteSelected))),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", strings.ToLower(refresh))),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Toggle, k.SelectAll, k.Filter, k.Delete, k.Refresh, k.Quit}
}

func helpLine(bindings []key.Binding) []string {
	var out []string
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		out = append(out, h.Key+": "+h.Desc)
	}
	return out
}
