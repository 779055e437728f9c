package report

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination writes artifacts into a directory of a local git clone and
// commits and pushes them together on Flush.
type GitDestination struct {
	repo    string // path to the local clone
	dir     string // directory within the repo
	branch  string // branch to commit and push to
	message string
	staged  []string
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone.
func NewGitDestination(repo, dir, branch, message string) *GitDestination {
	return &GitDestination{
		repo:    repo,
		dir:     dir,
		branch:  branch,
		message: message,
	}
}

// Write writes the artifact into the working tree and stages it.
func (d *GitDestination) Write(ctx context.Context, name string, data []byte) error {
	if len(d.staged) == 0 {
		if err := d.git(ctx, "checkout", d.branch); err != nil {
			return fmt.Errorf("git checkout: %w", err)
		}
		// The remote might not have the branch yet.
		_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)
	}

	rel := filepath.Join(d.dir, name)
	filePath := filepath.Join(d.repo, rel)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := d.git(ctx, "add", rel); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	d.staged = append(d.staged, rel)
	return nil
}

// Flush commits the staged artifacts and pushes. Nothing is committed when
// the artifacts are unchanged.
func (d *GitDestination) Flush(ctx context.Context) error {
	if len(d.staged) == 0 {
		return nil
	}
	d.staged = nil

	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	if err := d.git(ctx, "commit", "-m", d.message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	if err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = os.Stderr // redirect to stderr so it's visible in logs
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
