package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitDestination keeps exports under a directory of a local clone and pushes
// each run that changes them as one commit.
type GitDestination struct {
	repo   string
	dir    string
	branch string
}

// NewGitDestination targets dir (relative to the repo root, "" for the root)
// on branch of the clone at repo.
func NewGitDestination(repo, dir, branch string) *GitDestination {
	return &GitDestination{repo: repo, dir: dir, branch: branch}
}

func (d *GitDestination) Name() string { return "git:" + d.repo }

func (d *GitDestination) Write(ctx context.Context, files []File) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The branch may not exist upstream yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	root := filepath.Join(d.repo, d.dir)
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}

	scope := d.dir
	if scope == "" {
		scope = "."
	}
	if _, err := d.git(ctx, "add", "--", scope); err != nil {
		return err
	}
	staged, err := d.git(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return err
	}
	if staged == "" {
		return nil
	}

	msg := fmt.Sprintf("sync: update client exports (%d tenants, %s)", len(files), time.Now().UTC().Format(time.RFC3339))
	if _, err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	_, err = d.git(ctx, "push", "origin", d.branch)
	return err
}

// git runs a git subcommand in the clone and returns its trimmed stdout.
// Failures carry git's stderr.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
