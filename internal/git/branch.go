package git

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

// Commands run against the repository. Branch names are interpolated
// inside double quotes, see DeleteCommand.
const (
	cmdVersion       = "git --version"
	cmdGitDir        = "git rev-parse --git-dir"
	cmdFetchPrune    = "git fetch --prune"
	cmdLocalBranches = "git branch --no-color"
	cmdRemoteBranch  = "git branch -r --no-color"
	cmdCurrentBranch = "git rev-parse --abbrev-ref HEAD"
)

// DeleteCommandPrefix starts every line DeleteCommand returns.
const DeleteCommandPrefix = "git branch -D "

// DeleteCommand is the exact command line used to force-delete name.
func DeleteCommand(name string) string {
	return fmt.Sprintf("%s\"%s\"", DeleteCommandPrefix, name)
}

func verifyCommand(name string) string {
	return "git rev-parse --verify " + name
}

// ValidateBranchName rejects names that cannot be placed inside a double
// quoted shell word unchanged. git itself forbids most of these; the check
// keeps a hand-typed name from reaching the shell.
func ValidateBranchName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty branch name")
	}
	if strings.ContainsAny(name, "\"$`\\\n\r") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	return nil
}

// splitLines returns the trimmed, non-empty lines of output.
func splitLines(output string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// parseLocalBranches parses `git branch --no-color` output.
// Format: "* current", "  other", "+ checked-out-in-worktree"
func parseLocalBranches(output string) []string {
	var names []string
	for _, line := range splitLines(output) {
		// Marker for the checked out branch (or another worktree's)
		if strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ ") {
			line = strings.TrimSpace(line[2:])
		}
		// Detached HEAD shows up as "(HEAD detached at abc123)"
		if strings.HasPrefix(line, "(") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// parseRemoteBranches parses `git branch -r --no-color` output, stripping
// the remote prefix once. The symbolic "origin/HEAD -> origin/main" line is
// kept as "HEAD -> origin/main", which never matches a local name.
func parseRemoteBranches(output, remote string) []string {
	prefix := remote + "/"
	var names []string
	for _, line := range splitLines(output) {
		names = append(names, strings.TrimPrefix(line, prefix))
	}
	return names
}

// buildBranches joins local and remote names into records.
func buildBranches(local, remote []string, current, main string) []models.Branch {
	onRemote := make(map[string]bool, len(remote))
	for _, name := range remote {
		onRemote[name] = true
	}

	branches := make([]models.Branch, 0, len(local))
	for _, name := range local {
		branches = append(branches, models.Branch{
			Name:         name,
			IsLocal:      true,
			ExistsRemote: onRemote[name],
			IsCurrent:    current != "" && name == current,
			IsMain:       main != "" && name == main,
		})
	}
	return branches
}
