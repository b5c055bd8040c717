package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type filterDoneMsg struct {
	query string
}

type filterCancelMsg struct{}

// BranchInputView is the filter line above the branch list.
type BranchInputView struct {
	textInput textinput.Model
}

func NewBranchInputView() *BranchInputView {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter branches"
	ti.CharLimit = 100
	ti.Width = 40

	return &BranchInputView{
		textInput: ti,
	}
}

// Focus starts editing the filter.
func (b *BranchInputView) Focus() tea.Cmd {
	b.textInput.Focus()
	return textinput.Blink
}

func (b *BranchInputView) Value() string {
	return b.textInput.Value()
}

func (b *BranchInputView) Update(msg tea.Msg) (*BranchInputView, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			query := b.textInput.Value()
			b.textInput.Blur()
			return b, func() tea.Msg { return filterDoneMsg{query: query} }
		case "esc":
			b.textInput.Reset()
			b.textInput.Blur()
			return b, func() tea.Msg { return filterCancelMsg{} }
		}
	}

	b.textInput, cmd = b.textInput.Update(msg)
	return b, cmd
}

func (b *BranchInputView) View() string {
	return b.textInput.View()
}
