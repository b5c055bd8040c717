// Package webview renders the branch pruner screens as self-contained HTML
// documents. Styling uses the host's --vscode-* CSS variables so the page
// follows the editor theme; the list page keeps row selection in the page
// and only posts refresh and confirmDelete back to the host.
package webview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Kind identifies one of the documents a Renderer produces.
type Kind string

const (
	KindLoading Kind = "loading"
	KindError   Kind = "error"
	KindList    Kind = "list"
	KindEmpty   Kind = "empty"
	KindReady   Kind = "ready"
)

// Text is the fixed page text for one language.
type Text struct {
	Description          string
	RefreshButton        string
	DeleteSelectedButton string
	NoBranches           string
	SelectAll            string
	RemoteOK             string
	RemoteMissing        string
	Current              string
	Main                 string
}

var englishText = Text{
	Description:          "Git Branch Pruner helps you manage local Git branches by identifying and removing branches that are no longer needed, especially those that have been merged or deleted from remote.",
	RefreshButton:        "Refresh Branches",
	DeleteSelectedButton: "Delete Selected",
	NoBranches:           "No branches found",
	SelectAll:            "Select All",
	RemoteOK:             "Remote: ✓",
	RemoteMissing:        "Remote: ✗",
	Current:              "Current",
	Main:                 "Main",
}

var chineseText = Text{
	Description:          "Git Branch Pruner 帮助您管理本地 Git 分支，识别并删除不再需要的分支，特别是那些已经合并或从远程删除的分支。",
	RefreshButton:        "刷新分支",
	DeleteSelectedButton: "删除选中",
	NoBranches:           "未找到分支",
	SelectAll:            "全选",
	RemoteOK:             "远程: ✓",
	RemoteMissing:        "远程: ✗",
	Current:              "当前",
	Main:                 "主分支",
}

// Renderer produces the HTML documents for one language.
type Renderer struct {
	text Text
}

// New returns a renderer using the Chinese text when chinese is set and
// English otherwise.
func New(chinese bool) *Renderer {
	if chinese {
		return &Renderer{text: chineseText}
	}
	return &Renderer{text: englishText}
}

// Text returns the page text the renderer uses.
func (r *Renderer) Text() Text {
	return r.text
}

type badge struct {
	Class string
	Label string
}

type row struct {
	Name     string
	Disabled bool
	Badges   []badge
}

type page struct {
	Text      Text
	Message   string
	Rows      []row
	Deletable int
}

// Loading renders the spinner page with message.
func (r *Renderer) Loading(message string) string {
	return r.execute(KindLoading, page{Text: r.text, Message: message})
}

// Error renders the error page with message.
func (r *Renderer) Error(message string) string {
	return r.execute(KindError, page{Text: r.text, Message: message})
}

// Ready renders the description and a refresh button.
func (r *Renderer) Ready() string {
	return r.execute(KindReady, page{Text: r.text})
}

// List renders the branch list, or the empty page when there are no
// branches.
func (r *Renderer) List(branches []models.Branch) string {
	kind, p := r.listPage(branches)
	return r.execute(kind, p)
}

func (r *Renderer) listPage(branches []models.Branch) (Kind, page) {
	p := page{Text: r.text}
	if len(branches) == 0 {
		return KindEmpty, p
	}
	for _, b := range branches {
		p.Rows = append(p.Rows, row{
			Name:     b.Name,
			Disabled: !b.Deletable(),
			Badges:   r.badges(b),
		})
	}
	p.Deletable = len(models.DeletableBranches(branches))
	return KindList, p
}

// badges returns the status badges for b. They are additive.
func (r *Renderer) badges(b models.Branch) []badge {
	var out []badge
	if b.ExistsRemote {
		out = append(out, badge{"in-sync", r.text.RemoteOK})
	} else {
		out = append(out, badge{"stale", r.text.RemoteMissing})
	}
	if b.IsCurrent {
		out = append(out, badge{"current", r.text.Current})
	}
	if b.IsMain {
		out = append(out, badge{"main", r.text.Main})
	}
	return out
}

func (r *Renderer) execute(kind Kind, p page) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind), p); err != nil {
		msg := fmt.Sprintf("render %s: %v", kind, err)
		return "<!DOCTYPE html>\n<html><body><pre>" + template.HTMLEscapeString(msg) + "</pre></body></html>\n"
	}
	return buf.String()
}
