package webview

import (
	"strings"
	"testing"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

func sampleBranches() []models.Branch {
	return []models.Branch{
		{Name: "main", IsLocal: true, ExistsRemote: true, IsMain: true},
		{Name: "feature-x", IsLocal: true, IsCurrent: true},
		{Name: "old-fix", IsLocal: true, ExistsRemote: true},
		{Name: "spike", IsLocal: true},
	}
}

func assertContains(t *testing.T, doc string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(doc, w) {
			t.Errorf("document missing %q", w)
		}
	}
}

func assertNotContains(t *testing.T, doc string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(doc, u) {
			t.Errorf("document unexpectedly contains %q", u)
		}
	}
}

func TestLoading(t *testing.T) {
	t.Parallel()

	doc := New(false).Loading("Refreshing branch information...")
	assertContains(t, doc,
		"<!DOCTYPE html>",
		`<div class="loading-spinner"></div>`,
		"<span>Refreshing branch information...</span>",
		englishText.Description,
		"var(--vscode-foreground)",
	)
}

func TestError(t *testing.T) {
	t.Parallel()

	doc := New(false).Error("Git is not installed")
	assertContains(t, doc, `<div class="error-message">`, "Git is not installed")
	assertNotContains(t, doc, "<script>")
}

func TestReady(t *testing.T) {
	t.Parallel()

	doc := New(false).Ready()
	assertContains(t, doc, `id="refreshBtn"`, "Refresh Branches", "vscode.postMessage({ type: 'refresh' })")
}

func TestListRows(t *testing.T) {
	t.Parallel()

	doc := New(false).List(sampleBranches())

	assertContains(t, doc,
		`<div class="branch-list">`,
		`id="select-all"`,
		// main and current rows are disabled
		`data-branch="main" disabled>`,
		`data-branch="feature-x" disabled>`,
		// the others are selectable
		`data-branch="old-fix">`,
		`data-branch="spike">`,
		`data-deletable="2">`,
		`type: 'confirmDelete'`,
		`case 'setControlsState':`,
	)
	assertNotContains(t, doc, `<div class="no-branches">`)

	if got := strings.Count(doc, `class="branch-item disabled"`); got != 2 {
		t.Errorf("disabled rows = %d, want 2", got)
	}
	if got := strings.Count(doc, `class="branch-item"`); got != 2 {
		t.Errorf("enabled rows = %d, want 2", got)
	}
}

func TestListBadges(t *testing.T) {
	t.Parallel()

	r := New(false)
	b := models.Branch{Name: "master", IsLocal: true, ExistsRemote: true, IsCurrent: true, IsMain: true}
	got := r.badges(b)
	want := []badge{{"in-sync", "Remote: ✓"}, {"current", "Current"}, {"main", "Main"}}
	if len(got) != len(want) {
		t.Fatalf("badges() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("badge %d = %v, want %v", i, got[i], want[i])
		}
	}

	stale := r.badges(models.Branch{Name: "x", IsLocal: true})
	if len(stale) != 1 || stale[0].Class != "stale" {
		t.Errorf("badges(local only) = %v, want single stale badge", stale)
	}

	doc := r.List([]models.Branch{b})
	assertContains(t, doc,
		`<span class="status-badge in-sync">Remote: ✓</span>`,
		`<span class="status-badge current">Current</span>`,
		`<span class="status-badge main">Main</span>`,
	)
}

func TestListDeleteButtonDisabledWithoutCandidates(t *testing.T) {
	t.Parallel()

	doc := New(false).List([]models.Branch{
		{Name: "main", IsLocal: true, IsMain: true},
		{Name: "wip", IsLocal: true, IsCurrent: true},
	})
	assertContains(t, doc, `data-deletable="0" disabled>`)
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	doc := New(false).List(nil)
	assertContains(t, doc, `<div class="no-branches">`, "No branches found", `id="refreshBtn"`)
	assertNotContains(t, doc, `<div class="branch-list">`, `id="select-all"`, `id="deleteBtn"`)

	kind, _ := New(false).listPage([]models.Branch{})
	if kind != KindEmpty {
		t.Errorf("listPage(empty) kind = %q, want %q", kind, KindEmpty)
	}
}

func TestListEscapesNames(t *testing.T) {
	t.Parallel()

	doc := New(false).List([]models.Branch{{Name: `<img src=x onerror=alert(1)>`, IsLocal: true}})
	assertNotContains(t, doc, "<img src=x")
	assertContains(t, doc, "&lt;img src=x onerror=alert(1)&gt;")
}

func TestChineseText(t *testing.T) {
	t.Parallel()

	r := New(true)
	doc := r.List([]models.Branch{{Name: "main", IsLocal: true, IsMain: true}})
	assertContains(t, doc, "刷新分支", "全选", "删除选中", "主分支", "远程: ✗")

	if r.Text().NoBranches != "未找到分支" {
		t.Errorf("Text().NoBranches = %q", r.Text().NoBranches)
	}
}
