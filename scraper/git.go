// scraper/git.go
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitRepo keeps a shallow clone of one branch of a remote repository up to date.
type GitRepo struct {
	URL     string
	Branch  string
	Dir     string
	Timeout time.Duration
}

// Sync clones the repository into Dir on first use and fast-forwards it to the remote
// branch afterwards.
func (g *GitRepo) Sync(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.Dir, ".git")); os.IsNotExist(err) {
		slog.Info("Cloning data repository", "url", g.URL, "branch", g.Branch, "dir", g.Dir)
		if err := os.MkdirAll(filepath.Dir(g.Dir), 0755); err != nil {
			return fmt.Errorf("%w: failed to create directory %s: %w", ErrFetch, g.Dir, err)
		}
		_, err := g.run(ctx, filepath.Dir(g.Dir), "clone", "--depth", "1", "--branch", g.Branch, g.URL, g.Dir)
		return err
	}

	slog.Debug("Pulling data repository", "dir", g.Dir)
	if _, err := g.run(ctx, g.Dir, "fetch", "--depth", "1", "origin", g.Branch); err != nil {
		return err
	}
	_, err := g.run(ctx, g.Dir, "reset", "--hard", "FETCH_HEAD")
	return err
}

func (g *GitRepo) run(ctx context.Context, dir string, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: git %s: timeout after %v", ErrFetch, args[0], timeout)
		}
		return "", fmt.Errorf("%w: git %s: %w: %s", ErrFetch, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
