// Package server is the browser host for the branch pruner. It serves the
// rendered HTML documents with a small bridge script that stands in for
// the editor webview API: events are posted back over HTTP and screens,
// messages, confirmations and notifications are pushed as server-sent
// events.
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Johannes-Berggren/BranchPruner/internal/log"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
)

//go:embed bridge.js
var bridgeScript string

// TokenHeader carries the session token on every POST from the page.
const TokenHeader = "X-Pruner-Token"

// tokenPlaceholder is replaced with the session token when the bridge
// script is injected.
const tokenPlaceholder = "__PRUNER_TOKEN__"

// Controller is the part of provider.Provider the server drives.
type Controller interface {
	Resolve(ctx context.Context) error
	Handle(ctx context.Context, ev provider.Event) error
}

type event struct {
	name string
	data []byte
}

type confirmRequest struct {
	ID string `json:"id"`
	provider.Confirmation
}

type confirmAnswer struct {
	ID     string `json:"id"`
	Choice string `json:"choice"`
}

type notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type renderNotice struct {
	Kind provider.ScreenKind `json:"kind"`
}

// Server is a provider.Surface and git.Notifier backed by HTTP.
type Server struct {
	ctx        context.Context
	controller Controller
	token      string

	mu          sync.Mutex
	markup      string
	subscribers map[chan event]struct{}
	pending     map[string]chan string
}

// New returns a server showing initial until the first screen arrives.
// ctx bounds the operations the server starts on behalf of clients.
func New(ctx context.Context, initial string) *Server {
	return &Server{
		ctx:         ctx,
		token:       randomToken(),
		markup:      initial,
		subscribers: make(map[chan event]struct{}),
		pending:     make(map[string]chan string),
	}
}

// Bind sets the controller that receives client events.
func (s *Server) Bind(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller = c
}

// Token returns the session token the served page sends back.
func (s *Server) Token() string {
	return s.token
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /message", s.guard(s.handleMessage))
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("POST /confirm", s.guard(s.handleConfirm))
	return loopbackOnly(mux)
}

// loopbackOnly refuses requests addressed to any host name other than a
// loopback one, so a rebound DNS name cannot reach the page or its token.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsLoopback(r.Host) {
			http.Error(w, "forbidden host", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsLoopback reports whether hostport names localhost or a loopback IP.
func IsLoopback(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// guard admits only same-origin JSON requests carrying the session token.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.authorize(r); err != nil {
			log.FromContext(s.ctx).Printf("Rejected %s %s: %v\n", r.Method, r.URL.Path, err)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) authorize(r *http.Request) error {
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			return fmt.Errorf("cross-origin request from %q", origin)
		}
	}
	if site := r.Header.Get("Sec-Fetch-Site"); site != "" && site != "same-origin" {
		return fmt.Errorf("request from %s site", site)
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content type %q", r.Header.Get("Content-Type"))
	}
	got := r.Header.Get(TokenHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
		return errors.New("missing or wrong session token")
	}
	return nil
}

func randomToken() string {
	b := make([]byte, 16)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Run resolves the controller and serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.run(func(ctx context.Context) error {
		return s.bound().Resolve(ctx)
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) bound() Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}

func (s *Server) run(op func(context.Context) error) {
	err := op(s.ctx)
	switch {
	case err == nil:
	case errors.Is(err, provider.ErrOperationInProgress):
		log.FromContext(s.ctx).Printf("Ignored event: %v\n", err)
	default:
		log.FromContext(s.ctx).Printf("Event failed: %v\n", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	markup := s.markup
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Options", "DENY")
	_, _ = w.Write([]byte(inject(markup, s.token)))
}

// inject places the bridge script first in <head> so page scripts can call
// acquireVsCodeApi while loading.
func inject(markup, token string) string {
	tag := "<script>" + strings.ReplaceAll(bridgeScript, tokenPlaceholder, token) + "</script>"
	if i := strings.Index(markup, "<head>"); i >= 0 {
		i += len("<head>")
		return markup[:i] + "\n" + tag + markup[i:]
	}
	return tag + markup
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var ev provider.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}
	c := s.bound()
	if c == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	// A delete waits for a later /confirm request, so the event cannot be
	// tied to this request's lifetime.
	go s.run(func(ctx context.Context) error {
		return c.Handle(ctx, ev)
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var a confirmAnswer
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid answer: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	reply, ok := s.pending[a.ID]
	delete(s.pending, a.ID)
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no pending confirmation "+a.ID, http.StatusNotFound)
		return
	}
	reply <- a.Choice
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) subscribe() chan event {
	ch := make(chan event, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan event) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

// broadcast delivers to every subscriber, dropping the event for any
// subscriber that is not keeping up. It reports the number reached.
func (s *Server) broadcast(name string, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		log.FromContext(s.ctx).Printf("Failed to encode %s event: %v\n", name, err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ch := range s.subscribers {
		select {
		case ch <- event{name: name, data: data}:
			n++
		default:
		}
	}
	return n
}

func (s *Server) Show(screen provider.Screen) {
	s.mu.Lock()
	s.markup = screen.Markup
	s.mu.Unlock()
	s.broadcast("render", renderNotice{Kind: screen.Kind})
}

func (s *Server) PostMessage(msg provider.Message) error {
	s.broadcast("message", msg)
	return nil
}

// Confirm asks every connected client. With no client connected the
// question counts as dismissed.
func (s *Server) Confirm(ctx context.Context, c provider.Confirmation) (string, error) {
	reply := make(chan string, 1)

	id := randomToken()
	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if s.broadcast("confirm", confirmRequest{ID: id, Confirmation: c}) == 0 {
		return "", nil
	}

	select {
	case choice := <-reply:
		return choice, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Server) Info(msg string)    { s.notify("info", msg) }
func (s *Server) Warning(msg string) { s.notify("warning", msg) }
func (s *Server) Error(msg string)   { s.notify("error", msg) }

func (s *Server) notify(level, msg string) {
	log.FromContext(s.ctx).Printf("[%s] %s\n", level, msg)
	s.broadcast("notify", notification{Level: level, Message: msg})
}
