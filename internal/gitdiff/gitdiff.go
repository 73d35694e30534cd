// Package gitdiff detects changed source files for incremental analysis.
package gitdiff

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Changes is the result of a git diff scan, filtered to one source
// extension.
type Changes struct {
	Files []string // changed source files, relative to the repo root
}

// GetChanges returns the source files with the given extension changed
// since base. An empty base compares against HEAD (uncommitted changes).
func GetChanges(projectPath, base, ext string) (*Changes, error) {
	if base == "" {
		base = "HEAD"
	}

	cmd := exec.Command("git", "diff", "--name-only", base)
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		// No commits yet: fall back to modified and untracked files.
		cmd = exec.Command("git", "ls-files", "--modified", "--others", "--exclude-standard")
		cmd.Dir = projectPath
		output, err = cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("git diff in %s: %w", projectPath, err)
		}
	}

	changes := &Changes{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" || !strings.HasSuffix(file, ext) {
			continue
		}
		if ext == ".go" && strings.HasSuffix(file, "_test.go") {
			continue
		}
		changes.Files = append(changes.Files, file)
	}
	return changes, scanner.Err()
}

// HasChanges reports whether any source file changed.
func (c *Changes) HasChanges() bool {
	return len(c.Files) > 0
}

// String returns a short summary of the changes.
func (c *Changes) String() string {
	return fmt.Sprintf("%d files changed", len(c.Files))
}

// RemoteTrackingBranch returns the remote branch the current branch
// tracks, e.g. "origin/main".
func RemoteTrackingBranch(projectPath string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	cmd.Dir = projectPath

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving remote tracking branch: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "", fmt.Errorf("current branch has no remote tracking branch")
	}
	return branch, nil
}
