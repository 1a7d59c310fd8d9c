package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"
)

// Client is the diff source and commit sink for one repository.
type Client struct {
	runner Runner
}

func NewClient(dir string, timeout time.Duration) *Client {
	return &Client{runner: Runner{Dir: dir, Timeout: timeout}}
}

func NewClientWithRunner(r Runner) *Client {
	return &Client{runner: r}
}

func (c *Client) Dir() string {
	return c.runner.Dir
}

// StagedDiff returns the trimmed index-vs-HEAD diff; empty means nothing is staged.
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, "--no-pager", "diff", "--cached")
	if err != nil {
		return "", fmt.Errorf("failed to read staged diff: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (c *Client) StageAll(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "add", "."); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// StageFiles resets the index for files and stages exactly them.
func (c *Client) StageFiles(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return ErrNoArguments
	}
	reset := append([]string{"reset", "HEAD", "--"}, files...)
	if _, err := c.runner.Run(ctx, reset...); err != nil {
		// A repository without commits has no HEAD to reset against.
		log.Debug().Err(err).Msg("Reset before staging failed")
	}
	add := append([]string{"add", "--"}, files...)
	if _, err := c.runner.Run(ctx, add...); err != nil {
		return fmt.Errorf("failed to stage files: %w", err)
	}
	return nil
}

// Unstage clears the whole index back to HEAD.
func (c *Client) Unstage(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "reset", "HEAD"); err != nil {
		return fmt.Errorf("failed to unstage changes: %w", err)
	}
	return nil
}

func (c *Client) Commit(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("empty commit message")
	}
	res, err := c.runner.Run(ctx, "commit", "-m", message)
	if err != nil {
		return "", fmt.Errorf("git commit failed: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// RepoRoot finds the worktree root containing dir, searching parents.
func RepoRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return "", fmt.Errorf("open repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// StagedFiles lists paths whose index entry differs from HEAD.
func StagedFiles(root string) ([]string, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	var files []string
	for path, st := range status {
		switch st.Staging {
		case gogit.Unmodified, gogit.Untracked:
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
