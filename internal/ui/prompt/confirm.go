// Package prompt asks for delete confirmation inline on a plain terminal,
// for the commands that do not open the full branch view.
package prompt

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
)

// Answer is how the delete question was settled.
type Answer int

const (
	// No is an explicit n, or enter on the default.
	No Answer = iota
	// Yes is the only answer that deletes.
	Yes
	// Aborted is esc, q or ctrl+c.
	Aborted
)

var (
	buttonStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type deleteModel struct {
	button string
	count  int
	answer Answer
	done   bool
}

func (m deleteModel) Init() tea.Cmd {
	return nil
}

func (m deleteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = Yes
	case "n", "N", "enter":
		m.answer = No
	case "ctrl+c", "q", "esc":
		m.answer = Aborted
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m deleteModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s [y/N] ",
		buttonStyle.Render(m.button),
		hintStyle.Render(fmt.Sprintf("(%d)?", m.count)))
}

// ConfirmDelete asks on in/out whether to go ahead with c for count
// branches. Anything but y leaves the branches alone.
func ConfirmDelete(in io.Reader, out io.Writer, c provider.Confirmation, count int) (Answer, error) {
	p := tea.NewProgram(deleteModel{button: c.Button, count: count}, tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return Aborted, err
	}
	return final.(deleteModel).answer, nil
}
