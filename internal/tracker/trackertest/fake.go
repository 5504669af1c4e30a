// Package trackertest provides an in-memory tracker.Tracker for tests.
package trackertest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"pmsync/internal/services"
	"pmsync/internal/tracker"
)

// Fake records calls and serves issue state and comments from memory.
type Fake struct {
	mu sync.Mutex

	// Issues maps issue id to state. Unknown ids produce ErrRemoteNotFound.
	Issues map[string]string
	// Comments accumulates posted comments per issue.
	Comments map[string][]tracker.Comment

	AuthErr  error
	StateErr error
	PostErr  error
	ListErr  error
	// OmitURL makes PostComment return no URL, forcing callers to verify
	// through ListRecentComments.
	OmitURL bool

	Calls []string
}

// New returns a fake with the given issues marked open.
func New(openIssues ...string) *Fake {
	f := &Fake{
		Issues:   make(map[string]string),
		Comments: make(map[string][]tracker.Comment),
	}
	for _, id := range openIssues {
		f.Issues[id] = tracker.StateOpen
	}
	return f
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount reports how many times the named method was invoked.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *Fake) AuthStatus(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AuthStatus")
	return f.AuthErr
}

func (f *Fake) GetIssueState(_ context.Context, issue string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetIssueState")
	if f.StateErr != nil {
		return "", f.StateErr
	}
	state, ok := f.Issues[issue]
	if !ok {
		return "", services.Wrap(services.ErrRemoteNotFound, "tracker", "issue view", fmt.Sprintf("issue #%s does not exist", issue), nil)
	}
	return state, nil
}

func (f *Fake) PostComment(_ context.Context, issue, bodyPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PostComment")
	if f.PostErr != nil {
		return "", f.PostErr
	}
	if _, ok := f.Issues[issue]; !ok {
		return "", services.Wrap(services.ErrRemoteNotFound, "tracker", "issue comment", fmt.Sprintf("issue #%s does not exist", issue), nil)
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return "", err
	}
	n := len(f.Comments[issue]) + 1
	url := fmt.Sprintf("https://github.com/acme/widgets/issues/%s#issuecomment-%d", issue, n)
	f.Comments[issue] = append(f.Comments[issue], tracker.Comment{
		URL:       url,
		Author:    "pmsync",
		Body:      string(body),
		CreatedAt: time.Now().UTC(),
	})
	if f.OmitURL {
		return "", nil
	}
	return url, nil
}

func (f *Fake) ListRecentComments(_ context.Context, issue string, limit int) ([]tracker.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListRecentComments")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	comments := f.Comments[issue]
	if limit > 0 && len(comments) > limit {
		comments = comments[len(comments)-limit:]
	}
	return append([]tracker.Comment(nil), comments...), nil
}

var _ tracker.Tracker = (*Fake)(nil)
