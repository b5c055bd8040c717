package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

func keyPress(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func testBranches() []models.Branch {
	return []models.Branch{
		{Name: "main", IsLocal: true, ExistsRemote: true, IsMain: true},
		{Name: "feature-x", IsLocal: true},
		{Name: "bugfix/login", IsLocal: true, ExistsRemote: true, IsCurrent: true},
		{Name: "release-1", IsLocal: true, ExistsRemote: true},
	}
}
