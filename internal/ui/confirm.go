package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Johannes-Berggren/BranchPruner/internal/git"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// ConfirmView is the modal delete confirmation. Only "y" answers with the
// delete button; every other way out cancels.
type ConfirmView struct {
	confirmation provider.Confirmation
	reply        chan<- string
	answered     bool
}

func NewConfirmView(c provider.Confirmation, reply chan<- string) *ConfirmView {
	return &ConfirmView{confirmation: c, reply: reply}
}

// Update handles a key press and reports whether the modal is finished.
func (c *ConfirmView) Update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		c.answer(c.confirmation.Button)
		return true, nil
	case "n", "N", "esc", "q", "enter", "ctrl+c":
		c.answer("")
		return true, nil
	case "c":
		return false, c.copyCommands()
	}
	return false, nil
}

// Dismiss cancels the confirmation if it is still open.
func (c *ConfirmView) Dismiss() {
	c.answer("")
}

func (c *ConfirmView) answer(choice string) {
	if c.answered {
		return
	}
	c.answered = true
	c.reply <- choice
}

func (c *ConfirmView) copyCommands() tea.Cmd {
	commands := commandLines(c.confirmation.Message)
	return func() tea.Msg {
		if err := writeClipboard(strings.Join(commands, "\n")); err != nil {
			return notifyMsg{levelError, fmt.Sprintf("Failed to copy commands: %v", err)}
		}
		return notifyMsg{levelInfo, fmt.Sprintf("Copied %d command(s) to clipboard", len(commands))}
	}
}

// commandLines extracts the delete commands from a confirmation message.
func commandLines(message string) []string {
	var out []string
	for _, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, git.DeleteCommandPrefix) {
			out = append(out, line)
		}
	}
	return out
}

func (c *ConfirmView) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2)

	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Italic(true)

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		c.confirmation.Message,
		"",
		detailStyle.Render(c.confirmation.Detail),
		"",
		buttonStyle.Render("y: "+c.confirmation.Button)+"   "+helpStyle.Render("n/esc: "+c.confirmation.Cancel+" • c: copy commands"),
	)

	return boxStyle.Render(body)
}
