package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"pmsync/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the gh client.
type Option func(*GH)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *GH) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithRepo pins every call to owner/name instead of the repository inferred
// from the working directory.
func WithRepo(repo string) Option {
	return func(c *GH) {
		c.repo = strings.TrimSpace(repo)
	}
}

// WithDir sets the working directory gh runs in.
func WithDir(dir string) Option {
	return func(c *GH) {
		c.dir = dir
	}
}

// GH wraps the gh command-line client.
type GH struct {
	binary string
	repo   string
	dir    string
}

// NewGH constructs a gh client using defaults.
func NewGH(opts ...Option) *GH {
	c := &GH{binary: "gh"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthStatus runs gh auth status.
func (c *GH) AuthStatus(ctx context.Context) error {
	_, err := c.run(ctx, "auth status", "auth", "status")
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrExternalTool, "preflight", "auth status", c.binary+" not found in PATH", err)
	}
	return services.Wrap(services.ErrAuth, "preflight", "auth status", "tracker client is not authenticated", err)
}

// GetIssueState returns the issue's open/closed state.
func (c *GH) GetIssueState(ctx context.Context, issue string) (string, error) {
	if strings.TrimSpace(issue) == "" {
		return "", errors.New("issue required")
	}
	out, err := c.run(ctx, "issue view", c.withRepo("issue", "view", issue, "--json", "state")...)
	if err != nil {
		return "", classify(err, "issue view", issue)
	}
	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "tracker", "issue view", "decode issue state", err)
	}
	return NormalizeState(payload.State)
}

// PostComment runs gh issue comment with the body file.
func (c *GH) PostComment(ctx context.Context, issue, bodyPath string) (string, error) {
	if strings.TrimSpace(issue) == "" {
		return "", errors.New("issue required")
	}
	if strings.TrimSpace(bodyPath) == "" {
		return "", errors.New("body path required")
	}
	out, err := c.run(ctx, "issue comment", c.withRepo("issue", "comment", issue, "--body-file", bodyPath)...)
	if err != nil {
		return "", classify(err, "issue comment", issue)
	}
	return extractURL(string(out)), nil
}

// ListRecentComments reads the issue's comments and keeps the newest limit.
func (c *GH) ListRecentComments(ctx context.Context, issue string, limit int) ([]Comment, error) {
	if strings.TrimSpace(issue) == "" {
		return nil, errors.New("issue required")
	}
	out, err := c.run(ctx, "issue view", c.withRepo("issue", "view", issue, "--json", "comments")...)
	if err != nil {
		return nil, classify(err, "issue view", issue)
	}
	var payload struct {
		Comments []struct {
			URL       string    `json:"url"`
			Body      string    `json:"body"`
			CreatedAt time.Time `json:"createdAt"`
			Author    struct {
				Login string `json:"login"`
			} `json:"author"`
		} `json:"comments"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "tracker", "issue view", "decode comments", err)
	}
	comments := make([]Comment, 0, len(payload.Comments))
	for _, item := range payload.Comments {
		comments = append(comments, Comment{
			URL:       item.URL,
			Author:    item.Author.Login,
			Body:      item.Body,
			CreatedAt: item.CreatedAt,
		})
	}
	if limit > 0 && len(comments) > limit {
		comments = comments[len(comments)-limit:]
	}
	return comments, nil
}

func (c *GH) withRepo(args ...string) []string {
	if c.repo == "" {
		return args
	}
	return append(args, "--repo", c.repo)
}

func (c *GH) run(ctx context.Context, op string, args ...string) ([]byte, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		output := stderr.String()
		if strings.TrimSpace(output) == "" {
			output = stdout.String()
		}
		return nil, &RemoteError{Op: c.binary + " " + op, Output: output, Err: err}
	}
	return stdout.Bytes(), nil
}

func classify(err error, op, issue string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrExternalTool, "tracker", op, "tracker client not found in PATH", err)
	}
	text := strings.ToLower(RemoteText(err))
	switch {
	case strings.Contains(text, "gh auth login"),
		strings.Contains(text, "authentication"),
		strings.Contains(text, "http 401"),
		strings.Contains(text, "bad credentials"):
		return services.Wrap(services.ErrAuth, "tracker", op, "tracker client is not authenticated", err)
	case strings.Contains(text, "could not resolve to an issue"),
		strings.Contains(text, "http 404"),
		strings.Contains(text, "not found"):
		return services.Wrap(services.ErrRemoteNotFound, "tracker", op, fmt.Sprintf("issue #%s does not exist", issue), err)
	default:
		return services.Wrap(services.ErrExternalTool, "tracker", op, "tracker client failed", err)
	}
}

// extractURL returns the last http(s) URL printed by gh, or "".
func extractURL(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			return line
		}
	}
	return ""
}

var _ Tracker = (*GH)(nil)
