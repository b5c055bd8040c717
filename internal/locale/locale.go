// Package locale selects between the English and Chinese message bundles.
package locale

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

var chinese = language.Chinese

// IsChinese reports whether tag names a Chinese locale (zh, zh-CN, zh_TW,
// zh-Hant...). POSIX forms such as "zh_CN.UTF-8" are accepted.
func IsChinese(tag string) bool {
	tag = normalize(tag)
	if tag == "" {
		return false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(tag), "zh")
	}
	base, _ := t.Base()
	want, _ := chinese.Base()
	return base == want
}

// FromEnv returns the language tag from the usual environment variables,
// in POSIX precedence order.
func FromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return ""
}

// normalize strips encoding and modifier suffixes and converts POSIX
// underscores so the tag can be parsed as BCP 47.
func normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ReplaceAll(tag, "_", "-")
}

// Messages is one fixed bundle of user-facing strings.
type Messages struct {
	Chinese bool

	Checking        string
	Refreshing      string
	GitNotInstalled string
	NotGitRepo      string
	FailedToCheck   string
	FailedToRefresh string
	FailedToDelete  string

	DeleteConfirmSingle string
	DeleteDetail        string
	DeleteButton        string
	CancelButton        string

	deleting              string
	deleteConfirmMultiple string
	andMore               string
}

// Deleting is the loading text shown while count branches are deleted.
func (m Messages) Deleting(count int) string {
	return fmt.Sprintf(m.deleting, count)
}

// DeleteConfirmMultiple is the confirmation heading for total branches.
func (m Messages) DeleteConfirmMultiple(total int) string {
	return fmt.Sprintf(m.deleteConfirmMultiple, total)
}

// AndMore summarizes count names left out of the confirmation preview.
func (m Messages) AndMore(count int) string {
	return fmt.Sprintf(m.andMore, count)
}

// For returns the bundle for the given language tag.
func For(tag string) Messages {
	if IsChinese(tag) {
		return Chinese()
	}
	return English()
}

// English returns the English bundle.
func English() Messages {
	return Messages{
		Checking:              "Checking Git environment...",
		Refreshing:            "Refreshing branch information...",
		GitNotInstalled:       "Git is not installed or not available in PATH. Please install Git and try again.",
		NotGitRepo:            "Current workspace is not a Git repository. Please open a Git repository and try again.",
		FailedToCheck:         "Failed to check Git environment. Please try again.",
		FailedToRefresh:       "Failed to refresh branches. Please try again.",
		FailedToDelete:        "Failed to delete branches. Please try again.",
		DeleteConfirmSingle:   "Are you sure you want to delete the following branch?",
		DeleteDetail:          "This operation will only delete local branches. Remote branches will not be affected.",
		DeleteButton:          "Delete Branches",
		CancelButton:          "Cancel",
		deleting:              "Deleting %d branch(es)...",
		deleteConfirmMultiple: "Are you sure you want to delete the following %d branches?",
		andMore:               "...and %d more",
	}
}

// Chinese returns the Chinese bundle.
func Chinese() Messages {
	m := English()
	m.Chinese = true
	m.Checking = "正在检查 Git 环境..."
	m.Refreshing = "正在刷新分支信息..."
	m.GitNotInstalled = "Git 未安装或无法在 PATH 中找到。请安装 Git 后重试。"
	m.NotGitRepo = "当前工作区不是 Git 仓库。请打开一个 Git 仓库后重试。"
	m.FailedToCheck = "检查 Git 环境失败。请重试。"
	m.FailedToRefresh = "刷新分支失败。请重试。"
	m.FailedToDelete = "删除分支失败。请重试。"
	m.DeleteConfirmSingle = "确定要删除以下分支吗？"
	m.DeleteDetail = "此操作只会删除本地分支，不会影响远程分支。"
	m.DeleteButton = "删除分支"
	m.CancelButton = "取消"
	m.deleting = "正在删除 %d 个分支..."
	m.deleteConfirmMultiple = "确定要删除以下 %d 个分支吗？"
	m.andMore = "...以及另外 %d 个"
	return m
}
