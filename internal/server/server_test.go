package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Johannes-Berggren/BranchPruner/internal/git"
	"github.com/Johannes-Berggren/BranchPruner/internal/locale"
	"github.com/Johannes-Berggren/BranchPruner/internal/models"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
	"github.com/Johannes-Berggren/BranchPruner/internal/webview"
)

const page = "<!DOCTYPE html>\n<html>\n<head>\n<title>t</title></head><body>hello</body></html>"

type fakeController struct {
	events chan provider.Event
}

func (f *fakeController) Resolve(context.Context) error { return nil }

func (f *fakeController) Handle(_ context.Context, ev provider.Event) error {
	f.events <- ev
	return nil
}

const host = "127.0.0.1:7420"

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	h.ServeHTTP(rec, req)
	return rec
}

// post sends body the way the bridge script does.
func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://"+host)
	req.Header.Set(TokenHeader, s.Token())
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// postLive sends body to a running server, with the page's headers when
// token is set.
func postLive(t *testing.T, url, path, token, contentType, origin, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

func TestIndexInjectsBridge(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	rec := get(t, s.Handler(), "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	script := strings.Index(body, "window.acquireVsCodeApi")
	if script < 0 {
		t.Fatal("bridge script missing")
	}
	if title := strings.Index(body, "<title>"); script > title {
		t.Error("bridge script must come before the page head content")
	}
	if !strings.Contains(body, "<body>hello</body>") {
		t.Error("page body lost")
	}
	if !strings.Contains(body, "'"+s.Token()+"'") || strings.Contains(body, tokenPlaceholder) {
		t.Error("session token not injected")
	}
}

func TestTokensAreRandom(t *testing.T) {
	t.Parallel()

	a, b := New(context.Background(), page), New(context.Background(), page)
	if a.Token() == b.Token() || len(a.Token()) != 32 {
		t.Errorf("tokens %q and %q", a.Token(), b.Token())
	}
}

func TestInjectWithoutHead(t *testing.T) {
	t.Parallel()

	got := inject("<p>x</p>", "tok")
	if !strings.HasPrefix(got, "<script>") || !strings.HasSuffix(got, "</script><p>x</p>") {
		t.Errorf("inject() = %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	if rec := get(t, s.Handler(), "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := get(t, s.Handler(), "/message"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /message status = %d, want 405", rec.Code)
	}
}

func TestShowReplacesDocument(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	s.Show(provider.Screen{Kind: provider.ScreenError, Markup: "<html><head></head><body>oops</body></html>"})

	if body := get(t, s.Handler(), "/").Body.String(); !strings.Contains(body, "oops") {
		t.Errorf("document not replaced: %q", body)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bind     bool
		body     string
		wantCode int
	}{
		{"not bound", false, `{"type":"refresh"}`, http.StatusServiceUnavailable},
		{"bad json", true, `{"type":`, http.StatusBadRequest},
		{"refresh", true, `{"type":"refresh"}`, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(context.Background(), page)
			ctrl := &fakeController{events: make(chan provider.Event, 1)}
			if tt.bind {
				s.Bind(ctrl)
			}
			rec := post(t, s, "/message", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusAccepted {
				return
			}
			select {
			case ev := <-ctrl.events:
				if ev.Type != provider.EventRefresh {
					t.Errorf("event = %+v", ev)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("event never handled")
			}
		})
	}
}

func TestConfirmEndpointErrors(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	if rec := post(t, s, "/confirm", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", rec.Code)
	}
	if rec := post(t, s, "/confirm", `{"id":"c9","choice":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", rec.Code)
	}
}

func TestConfirmWithoutClients(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	choice, err := s.Confirm(context.Background(), provider.Confirmation{Button: "Delete Branches"})
	if err != nil || choice != "" {
		t.Errorf("Confirm() = %q, %v, want dismissal", choice, err)
	}
}

func TestConfirmRoundTrip(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	go func() {
		ev := <-ch
		var req confirmRequest
		if err := json.Unmarshal(ev.data, &req); err != nil {
			return
		}
		post(t, s, "/confirm", `{"id":"`+req.ID+`","choice":"`+req.Button+`"}`)
	}()

	choice, err := s.Confirm(context.Background(), provider.Confirmation{Message: "sure?", Button: "Delete Branches"})
	if err != nil || choice != "Delete Branches" {
		t.Errorf("Confirm() = %q, %v", choice, err)
	}
	if len(s.pending) != 0 {
		t.Error("pending confirmation not cleared")
	}
}

// sseReader reads named events from a live /events stream.
type sseReader struct {
	t    *testing.T
	scan *bufio.Scanner
}

func openEvents(t *testing.T, url string) (*sseReader, func()) {
	t.Helper()
	resp, err := http.Get(url + "/events")
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	return &sseReader{t: t, scan: bufio.NewScanner(resp.Body)}, func() { resp.Body.Close() }
}

func (r *sseReader) next() (string, string) {
	r.t.Helper()
	var name, data string
	for r.scan.Scan() {
		line := r.scan.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
	r.t.Fatalf("stream ended: %v", r.scan.Err())
	return "", ""
}

func TestEventsStream(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	events, closeEvents := openEvents(t, ts.URL)
	defer closeEvents()

	if err := s.PostMessage(provider.Message{Type: provider.MessageSetControlsState, Enabled: false}); err != nil {
		t.Fatal(err)
	}
	s.Warning("Failed to fetch from remote. Branch information might be outdated.")
	s.Show(provider.Screen{Kind: provider.ScreenLoading, Markup: page})

	tests := []struct {
		name string
		data string
	}{
		{"message", `{"type":"setControlsState","enabled":false}`},
		{"notify", `{"level":"warning","message":"Failed to fetch from remote. Branch information might be outdated."}`},
		{"render", `{"kind":"loading"}`},
	}
	for _, tt := range tests {
		name, data := events.next()
		if name != tt.name || data != tt.data {
			t.Errorf("event = %s %s, want %s %s", name, data, tt.name, tt.data)
		}
	}
}

type fakeService struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeService) CheckEnvironment(context.Context) (string, error) { return "/repo", nil }

func (f *fakeService) ListBranches(context.Context) ([]models.Branch, error) {
	return []models.Branch{
		{Name: "main", IsLocal: true, IsMain: true},
		{Name: "feature-x", IsLocal: true},
	}, nil
}

func (f *fakeService) DeleteBranches(_ context.Context, names []string) []models.DeleteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, names...)
	out := make([]models.DeleteResult, len(names))
	for i, n := range names {
		out[i] = models.DeleteResult{Name: n, Command: git.DeleteCommand(n)}
	}
	return out
}

func TestDeleteThroughBrowser(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	s := New(context.Background(), page)
	s.Bind(provider.New(svc, s, webview.New(false), locale.English()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	events, closeEvents := openEvents(t, ts.URL)
	defer closeEvents()

	origin := ts.URL
	if code := postLive(t, ts.URL, "/message", s.Token(), "application/json", origin,
		`{"type":"confirmDelete","branches":["feature-x"]}`); code != http.StatusAccepted {
		t.Fatalf("message status = %d", code)
	}

	var req confirmRequest
	for {
		name, data := events.next()
		if name != "confirm" {
			continue
		}
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatal(err)
		}
		break
	}
	if !strings.Contains(req.Message, `git branch -D "feature-x"`) {
		t.Errorf("confirmation message = %q", req.Message)
	}

	if code := postLive(t, ts.URL, "/confirm", s.Token(), "application/json", origin,
		`{"id":"`+req.ID+`","choice":"`+req.Button+`"}`); code != http.StatusNoContent {
		t.Fatalf("confirm status = %d", code)
	}

	// Wait for the refresh that follows the delete.
	for {
		name, data := events.next()
		if name == "render" && data == `{"kind":"list"}` {
			break
		}
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.deleted) != 1 || svc.deleted[0] != "feature-x" {
		t.Errorf("deleted = %v", svc.deleted)
	}
	if body := get(t, s.Handler(), "/").Body.String(); !strings.Contains(body, `data-branch="feature-x"`) {
		t.Error("list document not served after refresh")
	}
}

func TestRequestGuard(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	s.Bind(&fakeController{events: make(chan provider.Event, 8)})

	tests := []struct {
		name     string
		edit     func(r *http.Request)
		wantCode int
	}{
		{"page request", func(*http.Request) {}, http.StatusAccepted},
		{"no origin header", func(r *http.Request) { r.Header.Del("Origin") }, http.StatusAccepted},
		{"charset parameter", func(r *http.Request) { r.Header.Set("Content-Type", "application/json; charset=utf-8") }, http.StatusAccepted},
		{"missing token", func(r *http.Request) { r.Header.Del(TokenHeader) }, http.StatusForbidden},
		{"wrong token", func(r *http.Request) { r.Header.Set(TokenHeader, "0000") }, http.StatusForbidden},
		{"text/plain", func(r *http.Request) { r.Header.Set("Content-Type", "text/plain") }, http.StatusForbidden},
		{"form", func(r *http.Request) { r.Header.Set("Content-Type", "application/x-www-form-urlencoded") }, http.StatusForbidden},
		{"other origin", func(r *http.Request) { r.Header.Set("Origin", "http://evil.example") }, http.StatusForbidden},
		{"other port", func(r *http.Request) { r.Header.Set("Origin", "http://127.0.0.1:9999") }, http.StatusForbidden},
		{"cross-site fetch", func(r *http.Request) { r.Header.Set("Sec-Fetch-Site", "cross-site") }, http.StatusForbidden},
		{"rebound host", func(r *http.Request) {
			r.Host = "evil.example:7420"
			r.Header.Set("Origin", "http://evil.example:7420")
		}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"type":"refresh"}`))
			req.Host = host
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Origin", "http://"+host)
			req.Header.Set(TokenHeader, s.Token())
			tt.edit(req)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestIndexRefusesOtherHosts(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), page)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "evil.example"
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden || strings.Contains(rec.Body.String(), s.Token()) {
		t.Errorf("status = %d, token leaked = %v", rec.Code, strings.Contains(rec.Body.String(), s.Token()))
	}
}

func TestIsLoopback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1:7420", true},
		{"127.0.0.1", true},
		{"localhost:7420", true},
		{"LOCALHOST", true},
		{"[::1]:7420", true},
		{"::1", true},
		{"evil.example:7420", false},
		{"192.168.1.10:7420", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := IsLoopback(tt.host); got != tt.want {
				t.Errorf("IsLoopback(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestForgedDeleteRejected(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	s := New(context.Background(), page)
	s.Bind(provider.New(svc, s, webview.New(false), locale.English()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	events, closeEvents := openEvents(t, ts.URL)
	defer closeEvents()

	const evil = "http://evil.example"
	if code := postLive(t, ts.URL, "/message", "", "text/plain", evil,
		`{"type":"confirmDelete","branches":["feature-x"]}`); code != http.StatusForbidden {
		t.Errorf("forged message status = %d, want 403", code)
	}

	// A real confirmation is pending; a forged answer must not settle it
	// even with the right id.
	if code := postLive(t, ts.URL, "/message", s.Token(), "application/json", ts.URL,
		`{"type":"confirmDelete","branches":["feature-x"]}`); code != http.StatusAccepted {
		t.Fatalf("message status = %d", code)
	}
	var req confirmRequest
	for {
		name, data := events.next()
		if name != "confirm" {
			continue
		}
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatal(err)
		}
		break
	}
	if len(req.ID) != 32 {
		t.Errorf("confirmation id %q is not a random token", req.ID)
	}
	if code := postLive(t, ts.URL, "/confirm", "", "text/plain", evil,
		`{"id":"`+req.ID+`","choice":"`+req.Button+`"}`); code != http.StatusForbidden {
		t.Errorf("forged confirm status = %d, want 403", code)
	}

	// The page dismisses the question.
	if code := postLive(t, ts.URL, "/confirm", s.Token(), "application/json", ts.URL,
		`{"id":"`+req.ID+`","choice":""}`); code != http.StatusNoContent {
		t.Fatalf("dismiss status = %d", code)
	}
	for {
		name, data := events.next()
		if name == "message" && data == `{"type":"setControlsState","enabled":true}` {
			break
		}
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", svc.deleted)
	}
}
