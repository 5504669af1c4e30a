package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Issue states as reported by Tracker.GetIssueState.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Comment is a single remote issue comment.
type Comment struct {
	URL       string
	Author    string
	Body      string
	CreatedAt time.Time
}

// Tracker is the remote protocol the sync pipeline depends on.
type Tracker interface {
	// AuthStatus returns an error wrapping services.ErrAuth when the client
	// cannot authenticate.
	AuthStatus(ctx context.Context) error
	// GetIssueState returns StateOpen or StateClosed.
	GetIssueState(ctx context.Context, issue string) (string, error)
	// PostComment submits the body stored at bodyPath and returns the comment
	// URL when the remote reports one.
	PostComment(ctx context.Context, issue, bodyPath string) (string, error)
	// ListRecentComments returns up to limit comments, newest last.
	ListRecentComments(ctx context.Context, issue string, limit int) ([]Comment, error)
}

// RemoteError carries the raw text the remote client produced for a failed
// operation.
type RemoteError struct {
	Op     string
	Output string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := e.Op
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RemoteText extracts the raw remote output from err, if any.
func RemoteText(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return strings.TrimSpace(remote.Output)
	}
	return ""
}

// NormalizeState maps remote state spellings onto StateOpen/StateClosed.
func NormalizeState(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "opened", "reopened":
		return StateOpen, nil
	case "closed", "merged":
		return StateClosed, nil
	default:
		return "", fmt.Errorf("unrecognized issue state %q", raw)
	}
}
