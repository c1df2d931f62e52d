package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"mediadigest/internal/logging"
	"mediadigest/internal/services"
)

// GitSync commits vault changes and optionally pushes them. The vault must
// already be a git repository; a clean worktree is a no-op.
type GitSync struct {
	dir    string
	push   bool
	remote string
	branch string
	logger *slog.Logger
}

func NewGitSync(dir string, push bool, remote, branch string, logger *slog.Logger) *GitSync {
	if logger == nil {
		logger = logging.NewNop()
	}
	if remote == "" {
		remote = "origin"
	}
	if branch == "" {
		branch = "main"
	}
	return &GitSync{dir: dir, push: push, remote: remote, branch: branch, logger: logger}
}

// Sync stages everything, commits when the worktree is dirty, and pushes
// when configured. It reports whether a commit was made.
func (g *GitSync) Sync(ctx context.Context, message string) (bool, error) {
	if _, err := g.run(ctx, "add", "."); err != nil {
		return false, err
	}
	status, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		g.logger.Info("vault unchanged, skipping commit")
		return false, nil
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return false, err
	}
	g.logger.Info("committed vault changes", logging.String("message", message))
	if !g.push {
		return true, nil
	}
	if _, err := g.run(ctx, "push", g.remote, g.branch); err != nil {
		return true, err
	}
	g.logger.Info("pushed vault",
		logging.String("remote", g.remote),
		logging.String("branch", g.branch))
	return true, nil
}

func (g *GitSync) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "export",
			fmt.Sprintf("git %s", args[0]),
			strings.TrimSpace(out.String()), err)
	}
	return out.String(), nil
}
