package ui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
)

var errDetached = errors.New("terminal surface is not attached")

type screenMsg struct {
	screen provider.Screen
}

type controlsMsg struct {
	enabled bool
}

type confirmRequestMsg struct {
	confirmation provider.Confirmation
	reply        chan<- string
}

type notifyLevel int

const (
	levelInfo notifyLevel = iota
	levelWarning
	levelError
)

type notifyMsg struct {
	level notifyLevel
	text  string
}

// Bridge carries provider output and service notifications into a running
// bubbletea program. It satisfies provider.Surface and git.Notifier.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewBridge returns a detached bridge. Call Attach before running the
// program.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes messages to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

// Detach drops all further messages.
func (b *Bridge) Detach() {
	b.attach(nil)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) post(msg tea.Msg) bool {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

func (b *Bridge) Show(screen provider.Screen) {
	b.post(screenMsg{screen: screen})
}

func (b *Bridge) PostMessage(msg provider.Message) error {
	if msg.Type != provider.MessageSetControlsState {
		return nil
	}
	if !b.post(controlsMsg{enabled: msg.Enabled}) {
		return errDetached
	}
	return nil
}

// Confirm blocks until the confirmation modal is answered or ctx ends.
func (b *Bridge) Confirm(ctx context.Context, c provider.Confirmation) (string, error) {
	reply := make(chan string, 1)
	if !b.post(confirmRequestMsg{confirmation: c, reply: reply}) {
		return "", errDetached
	}
	select {
	case choice := <-reply:
		return choice, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *Bridge) Info(msg string)    { b.post(notifyMsg{levelInfo, msg}) }
func (b *Bridge) Warning(msg string) { b.post(notifyMsg{levelWarning, msg}) }
func (b *Bridge) Error(msg string)   { b.post(notifyMsg{levelError, msg}) }
