// Package provider is the controller between a display surface and the
// branch service. It owns the in-flight flag, turns inbound events into
// service calls and pushes rendered screens back to the surface.
package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Johannes-Berggren/BranchPruner/internal/git"
	"github.com/Johannes-Berggren/BranchPruner/internal/locale"
	"github.com/Johannes-Berggren/BranchPruner/internal/log"
	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

// ErrOperationInProgress is returned when an event arrives while another
// refresh or delete is still running. The event is dropped, not queued.
var ErrOperationInProgress = errors.New("operation already in progress")

// Inbound event types.
const (
	EventRefresh       = "refresh"
	EventConfirmDelete = "confirmDelete"
)

// MessageSetControlsState is the only outbound message type.
const MessageSetControlsState = "setControlsState"

// Event is a request from the display surface.
type Event struct {
	Type     string   `json:"type"`
	Branches []string `json:"branches,omitempty"`
}

// Message is a notice to the display surface.
type Message struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// BranchService is the part of git.Service the provider drives.
type BranchService interface {
	CheckEnvironment(ctx context.Context) (string, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)
	DeleteBranches(ctx context.Context, names []string) []models.DeleteResult
}

// Renderer turns screen states into markup.
type Renderer interface {
	Loading(message string) string
	Error(message string) string
	List(branches []models.Branch) string
}

// Surface is where screens are shown and confirmations asked.
type Surface interface {
	// Show replaces the displayed screen.
	Show(screen Screen)
	// PostMessage delivers an outbound message.
	PostMessage(msg Message) error
	// Confirm asks a modal question and returns the chosen button label,
	// or "" when the question was dismissed.
	Confirm(ctx context.Context, c Confirmation) (string, error)
}

// ScreenKind is the state of the display.
type ScreenKind string

const (
	ScreenLoading ScreenKind = "loading"
	ScreenError   ScreenKind = "error"
	ScreenList    ScreenKind = "list"
	ScreenEmpty   ScreenKind = "empty"
)

// Screen is one rendered state of the display.
type Screen struct {
	Kind     ScreenKind
	Message  string
	Branches []models.Branch
	Markup   string
}

// Provider is the view controller. Create one per display surface.
type Provider struct {
	service  BranchService
	surface  Surface
	renderer Renderer
	messages locale.Messages
	preview  int

	busy atomic.Bool

	mu     sync.Mutex
	last   Screen
	listed []models.Branch
}

// Option configures a Provider.
type Option func(*Provider)

// WithConfirmPreview sets how many names the delete confirmation lists.
func WithConfirmPreview(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.preview = n
		}
	}
}

// New creates a provider.
func New(service BranchService, surface Surface, renderer Renderer, messages locale.Messages, opts ...Option) *Provider {
	p := &Provider{
		service:  service,
		surface:  surface,
		renderer: renderer,
		messages: messages,
		preview:  defaultPreview,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Messages returns the message bundle in use.
func (p *Provider) Messages() locale.Messages {
	return p.messages
}

// LastScreen returns the screen most recently shown.
func (p *Provider) LastScreen() Screen {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Busy reports whether an operation is in flight.
func (p *Provider) Busy() bool {
	return p.busy.Load()
}

// Resolve runs on activation: it shows the checking screen, verifies the
// environment and, if everything is in place, lists the branches.
func (p *Provider) Resolve(ctx context.Context) error {
	return p.withControlsDisabled(ctx, func() {
		p.checkEnvironment(ctx)
	})
}

// Handle dispatches an inbound event. Unknown types are ignored.
func (p *Provider) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventRefresh:
		return p.Refresh(ctx)
	case EventConfirmDelete:
		return p.ConfirmDelete(ctx, ev.Branches)
	}
	log.FromContext(ctx).Printf("Ignoring unknown event %q\n", ev.Type)
	return nil
}

// Refresh re-lists the branches.
func (p *Provider) Refresh(ctx context.Context) error {
	return p.withControlsDisabled(ctx, func() {
		p.refreshBranches(ctx)
	})
}

// ConfirmDelete asks for confirmation and deletes names if granted.
func (p *Provider) ConfirmDelete(ctx context.Context, names []string) error {
	return p.withControlsDisabled(ctx, func() {
		p.confirmAndDeleteBranches(ctx, names)
	})
}

// withControlsDisabled runs op unless another operation is in flight.
// Controls on the surface stay disabled while op runs.
func (p *Provider) withControlsDisabled(ctx context.Context, op func()) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer func() {
		p.busy.Store(false)
		p.setControlsState(ctx, true)
	}()

	p.setControlsState(ctx, false)
	op()
	return nil
}

func (p *Provider) setControlsState(ctx context.Context, enabled bool) {
	msg := Message{Type: MessageSetControlsState, Enabled: enabled}
	if err := p.surface.PostMessage(msg); err != nil {
		log.FromContext(ctx).Printf("Failed to post %s: %v\n", msg.Type, err)
	}
}

func (p *Provider) checkEnvironment(ctx context.Context) {
	p.showLoading(p.messages.Checking)

	_, err := p.service.CheckEnvironment(ctx)
	switch {
	case err == nil:
		// no intermediate ready screen
		p.refreshBranches(ctx)
	case errors.Is(err, git.ErrToolNotInstalled):
		p.showError(p.messages.GitNotInstalled)
	case errors.Is(err, git.ErrNoWorkspace), errors.Is(err, git.ErrNotRepository):
		p.showError(p.messages.NotGitRepo)
	default:
		log.FromContext(ctx).Printf("Environment check failed: %v\n", err)
		p.showError(p.messages.FailedToCheck)
	}
}

func (p *Provider) refreshBranches(ctx context.Context) {
	p.showLoading(p.messages.Refreshing)

	branches, err := p.service.ListBranches(ctx)
	if err != nil {
		log.FromContext(ctx).Printf("Refresh failed: %v\n", err)
		p.showError(p.messages.FailedToRefresh)
		return
	}
	p.showList(branches)
}

func (p *Provider) confirmAndDeleteBranches(ctx context.Context, names []string) {
	names = p.withoutProtected(ctx, names)
	if len(names) == 0 {
		return
	}

	c := BuildConfirmation(p.messages, names, p.preview)
	choice, err := p.surface.Confirm(ctx, c)
	if err != nil {
		log.FromContext(ctx).Printf("Confirmation failed: %v\n", err)
		return
	}
	if choice != c.Button {
		return
	}

	p.showLoading(p.messages.Deleting(len(names)))
	p.service.DeleteBranches(ctx, names)
	if err := ctx.Err(); err != nil {
		log.FromContext(ctx).Printf("Delete interrupted: %v\n", err)
		p.showError(p.messages.FailedToDelete)
		return
	}
	// Refresh even after partial failure so the list shows what is left.
	p.refreshBranches(ctx)
}

// withoutProtected drops names the last listing marked as the main or the
// current branch. Names the listing does not know are left to git.
func (p *Provider) withoutProtected(ctx context.Context, names []string) []string {
	p.mu.Lock()
	protected := make(map[string]bool)
	for _, b := range p.listed {
		if !b.Deletable() {
			protected[b.Name] = true
		}
	}
	p.mu.Unlock()

	out := make([]string, 0, len(names))
	for _, name := range names {
		if protected[name] {
			log.FromContext(ctx).Printf("Refusing to delete protected branch %q\n", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

func (p *Provider) showLoading(message string) {
	p.show(Screen{Kind: ScreenLoading, Message: message, Markup: p.renderer.Loading(message)})
}

func (p *Provider) showError(message string) {
	p.show(Screen{Kind: ScreenError, Message: message, Markup: p.renderer.Error(message)})
}

func (p *Provider) showList(branches []models.Branch) {
	kind := ScreenList
	if len(branches) == 0 {
		kind = ScreenEmpty
	}
	p.mu.Lock()
	p.listed = branches
	p.mu.Unlock()
	p.show(Screen{Kind: kind, Branches: branches, Markup: p.renderer.List(branches)})
}

func (p *Provider) show(s Screen) {
	p.mu.Lock()
	p.last = s
	p.mu.Unlock()
	p.surface.Show(s)
}
