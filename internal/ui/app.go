// Package ui is the terminal host for the branch pruner. It drives a
// provider.Provider and renders its screens with bubbletea.
package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Johannes-Berggren/BranchPruner/internal/log"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
	"github.com/Johannes-Berggren/BranchPruner/internal/webview"
)

type opDoneMsg struct {
	err error
}

// Controller is the part of provider.Provider the terminal drives.
type Controller interface {
	Resolve(ctx context.Context) error
	Handle(ctx context.Context, ev provider.Event) error
}

type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	controller Controller
	text       webview.Text
	keys       KeyMap

	screen   provider.Screen
	controls bool
	branches *BranchView
	confirm  *ConfirmView
	spinner  spinner.Model
	status   notifyMsg

	width  int
	height int
}

func NewModel(ctx context.Context, controller Controller, text webview.Text) Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	keys := DefaultKeyMap(text.SelectAll, text.DeleteSelectedButton, text.RefreshButton)

	return Model{
		ctx:        ctx,
		cancel:     cancel,
		controller: controller,
		text:       text,
		keys:       keys,
		branches:   NewBranchView(text, keys),
		spinner:    s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.run(m.controller.Resolve),
	)
}

// run executes op off the event loop. The provider may block in it waiting
// for a confirmation answer from this model.
func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func (m Model) send(ev provider.Event) tea.Cmd {
	return m.run(func(ctx context.Context) error {
		return m.controller.Handle(ctx, ev)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case screenMsg:
		m.screen = msg.screen
		if msg.screen.Kind == provider.ScreenList || msg.screen.Kind == provider.ScreenEmpty {
			m.branches.SetBranches(msg.screen.Branches)
		}
		return m, nil

	case controlsMsg:
		m.controls = msg.enabled
		return m, nil

	case confirmRequestMsg:
		if m.confirm != nil {
			m.confirm.Dismiss()
		}
		m.confirm = NewConfirmView(msg.confirmation, msg.reply)
		return m, nil

	case notifyMsg:
		m.status = msg
		return m, nil

	case opDoneMsg:
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, provider.ErrOperationInProgress):
			if l := log.FromContext(m.ctx); l.Verbose() {
				l.Printf("Ignored event: %v\n", msg.err)
			}
		default:
			m.status = notifyMsg{levelError, msg.err.Error()}
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	m.branches, cmd = m.branches.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		done, cmd := m.confirm.Update(msg)
		if done {
			m.confirm = nil
		}
		return m, cmd
	}

	if m.branches.Filtering() {
		var cmd tea.Cmd
		m.branches, cmd = m.branches.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		if !m.controls {
			return m, nil
		}
		m.status = notifyMsg{}
		return m, m.send(provider.Event{Type: provider.EventRefresh})

	case key.Matches(msg, m.keys.Delete):
		if !m.controls || m.screen.Kind != provider.ScreenList {
			return m, nil
		}
		names := m.branches.Selected()
		if len(names) == 0 {
			return m, nil
		}
		m.status = notifyMsg{}
		return m, m.send(provider.Event{Type: provider.EventConfirmDelete, Branches: names})
	}

	if m.screen.Kind != provider.ScreenList {
		return m, nil
	}
	var cmd tea.Cmd
	m.branches, cmd = m.branches.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := m.renderHeader()

	var body string
	switch {
	case m.confirm != nil:
		body = m.confirm.View()
	case m.screen.Kind == provider.ScreenList:
		body = m.branches.View()
	case m.screen.Kind == provider.ScreenEmpty:
		body = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render(m.text.NoBranches)
	case m.screen.Kind == provider.ScreenError:
		body = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render(m.screen.Message)
	default:
		body = m.spinner.View() + " " + m.screen.Message
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		m.renderStatus(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("170")).
		MarginRight(2)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Width(max(20, m.width))

	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238"))

	title := titleStyle.Render("✂ Branch Pruner")
	divider := dividerStyle.Render(strings.Repeat("─", m.width))

	return lipgloss.JoinVertical(lipgloss.Left, title, descStyle.Render(m.text.Description), divider)
}

func (m Model) renderStatus() string {
	if m.status.text == "" {
		return ""
	}
	color := lipgloss.Color("green")
	switch m.status.level {
	case levelWarning:
		color = lipgloss.Color("yellow")
	case levelError:
		color = lipgloss.Color("196")
	}
	return lipgloss.NewStyle().Foreground(color).Render(m.status.text)
}

func (m Model) renderFooter() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238"))

	keys := helpLine(m.keys.ShortHelp())
	if !m.controls {
		keys = append([]string{m.spinner.View() + " working..."}, helpLine([]key.Binding{m.keys.Quit})...)
	}

	divider := dividerStyle.Render(strings.Repeat("─", m.width))
	helpText := helpStyle.Render(strings.Join(keys, " • "))

	return lipgloss.JoinVertical(lipgloss.Left, divider, helpText)
}

// Run starts the terminal program and blocks until it exits.
func Run(ctx context.Context, p *provider.Provider, bridge *Bridge, text webview.Text) error {
	model := NewModel(ctx, p, text)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(prog)
	defer bridge.Detach()

	final, err := prog.Run()
	if m, ok := final.(Model); ok {
		if m.confirm != nil {
			m.confirm.Dismiss()
		}
		m.cancel()
	}
	return err
}
