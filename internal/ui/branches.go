package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
	"github.com/Johannes-Berggren/BranchPruner/internal/webview"
)

// branchSource implements fuzzy.Source over branch names.
type branchSource []models.Branch

func (s branchSource) String(i int) string { return s[i].Name }
func (s branchSource) Len() int            { return len(s) }

// BranchView is the selectable branch list. Main and current branches are
// shown but cannot be selected.
type BranchView struct {
	branches  []models.Branch
	matches   []fuzzy.Match
	selected  map[string]bool
	cursor    int
	filter    *BranchInputView
	filtering bool
	keys      KeyMap
	text      webview.Text
	height    int
}

func NewBranchView(text webview.Text, keys KeyMap) *BranchView {
	return &BranchView{
		selected: make(map[string]bool),
		filter:   NewBranchInputView(),
		keys:     keys,
		text:     text,
	}
}

// SetBranches replaces the list. Selection does not survive a reload.
func (b *BranchView) SetBranches(branches []models.Branch) {
	b.branches = branches
	b.selected = make(map[string]bool)
	b.applyFilter()
}

// Filtering reports whether the filter line has focus.
func (b *BranchView) Filtering() bool {
	return b.filtering
}

// Selected returns the selected deletable names in list order.
func (b *BranchView) Selected() []string {
	var names []string
	for _, branch := range b.branches {
		if b.selected[branch.Name] && branch.Deletable() {
			names = append(names, branch.Name)
		}
	}
	return names
}

func (b *BranchView) Update(msg tea.Msg) (*BranchView, tea.Cmd) {
	switch msg := msg.(type) {
	case filterDoneMsg:
		b.filtering = false

	case filterCancelMsg:
		b.filtering = false
		b.applyFilter()

	case tea.KeyMsg:
		if b.filtering {
			var cmd tea.Cmd
			b.filter, cmd = b.filter.Update(msg)
			b.applyFilter()
			return b, cmd
		}

		switch {
		case key.Matches(msg, b.keys.Down):
			if b.cursor < len(b.matches)-1 {
				b.cursor++
			}

		case key.Matches(msg, b.keys.Up):
			if b.cursor > 0 {
				b.cursor--
			}

		case key.Matches(msg, b.keys.Home):
			b.cursor = 0

		case key.Matches(msg, b.keys.End):
			b.cursor = max(0, len(b.matches)-1)

		case key.Matches(msg, b.keys.Toggle):
			if branch, ok := b.current(); ok && branch.Deletable() {
				b.selected[branch.Name] = !b.selected[branch.Name]
			}

		case key.Matches(msg, b.keys.SelectAll):
			b.toggleAll()

		case key.Matches(msg, b.keys.Filter):
			b.filtering = true
			return b, b.filter.Focus()
		}

	case tea.WindowSizeMsg:
		b.height = msg.Height

	default:
		// cursor blink
		if b.filtering {
			var cmd tea.Cmd
			b.filter, cmd = b.filter.Update(msg)
			return b, cmd
		}
	}

	return b, nil
}

// toggleAll selects every visible deletable branch, or clears them all
// when they are already selected.
func (b *BranchView) toggleAll() {
	all := true
	for _, m := range b.matches {
		branch := b.branches[m.Index]
		if branch.Deletable() && !b.selected[branch.Name] {
			all = false
			break
		}
	}
	for _, m := range b.matches {
		branch := b.branches[m.Index]
		if branch.Deletable() {
			b.selected[branch.Name] = !all
		}
	}
}

func (b *BranchView) applyFilter() {
	query := strings.TrimSpace(b.filter.Value())
	if query == "" {
		b.matches = make([]fuzzy.Match, len(b.branches))
		for i, branch := range b.branches {
			b.matches[i] = fuzzy.Match{Str: branch.Name, Index: i}
		}
	} else {
		b.matches = fuzzy.FindFrom(query, branchSource(b.branches))
	}

	if b.cursor >= len(b.matches) {
		b.cursor = max(0, len(b.matches)-1)
	}
}

func (b *BranchView) current() (models.Branch, bool) {
	if b.cursor < 0 || b.cursor >= len(b.matches) {
		return models.Branch{}, false
	}
	return b.branches[b.matches[b.cursor].Index], true
}

func (b *BranchView) View() string {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("cyan")).
		Bold(true).
		MarginBottom(1)

	branchStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("white"))

	disabledStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	selectedStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("238"))

	matchStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("yellow")).
		Underline(true)

	var out strings.Builder

	header := fmt.Sprintf("Branches (%d, %d selected)", len(b.branches), len(b.Selected()))
	out.WriteString(headerStyle.Render(header) + "\n")

	if b.filtering || b.filter.Value() != "" {
		out.WriteString(b.filter.View() + "\n")
	}

	if len(b.matches) == 0 {
		out.WriteString(disabledStyle.Render("  no matching branches") + "\n")
		return out.String()
	}

	start, end := b.window()
	for i := start; i < end; i++ {
		m := b.matches[i]
		branch := b.branches[m.Index]

		box := "[ ]"
		switch {
		case !branch.Deletable():
			box = "[-]"
		case b.selected[branch.Name]:
			box = "[x]"
		}

		name := highlight(branch.Name, m.MatchedIndexes, matchStyle)
		var line string
		if branch.Deletable() {
			line = box + " " + branchStyle.Render(name)
		} else {
			line = disabledStyle.Render(box) + " " + disabledStyle.Render(name)
		}
		line += " " + b.badges(branch)

		if i == b.cursor {
			line = selectedStyle.Render("▸ " + line)
		} else {
			line = "  " + line
		}

		out.WriteString(line + "\n")
	}

	return out.String()
}

// chrome is the number of lines the header, footer and list heading use.
const chrome = 10

// window returns the range of matches that fits the terminal, keeping the
// cursor in view.
func (b *BranchView) window() (int, int) {
	rows := b.height - chrome
	if b.height == 0 || rows <= 0 || len(b.matches) <= rows {
		return 0, len(b.matches)
	}
	start := max(0, b.cursor-rows/2)
	end := min(len(b.matches), start+rows)
	return end - rows, end
}

func (b *BranchView) badges(branch models.Branch) string {
	inSync := lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	stale := lipgloss.NewStyle().Foreground(lipgloss.Color("red"))
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	var parts []string
	if branch.ExistsRemote {
		parts = append(parts, inSync.Render(b.text.RemoteOK))
	} else {
		parts = append(parts, stale.Render(b.text.RemoteMissing))
	}
	if branch.IsCurrent {
		parts = append(parts, info.Render(b.text.Current))
	}
	if branch.IsMain {
		parts = append(parts, info.Render(b.text.Main))
	}
	return strings.Join(parts, " ")
}

// highlight styles the runes of s at the matched byte offsets.
func highlight(s string, matched []int, style lipgloss.Style) string {
	if len(matched) == 0 {
		return s
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}
	var out strings.Builder
	for i, r := range s {
		if hit[i] {
			out.WriteString(style.Render(string(r)))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}
