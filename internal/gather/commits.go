package gather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var errCommitLimit = errors.New("commit limit reached")

// RecentCommits lists up to limit commits reachable from HEAD of the
// repository containing dir, newest first, formatted "- <short-sha> <subject>".
// A non-zero since keeps only commits after it.
func RecentCommits(ctx context.Context, dir string, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	opts := &git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime}
	if !since.IsZero() {
		after := since.Add(time.Second)
		opts.Since = &after
	}
	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	lines := make([]string, 0, limit)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(lines) >= limit {
			return errCommitLimit
		}
		lines = append(lines, formatCommit(c))
		return nil
	})
	if err != nil && !errors.Is(err, errCommitLimit) && !errors.Is(err, io.EOF) {
		return lines, err
	}
	return lines, nil
}

func formatCommit(c *object.Commit) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return fmt.Sprintf("- %s %s", c.Hash.String()[:7], strings.TrimSpace(subject))
}
