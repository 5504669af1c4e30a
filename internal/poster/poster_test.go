package poster

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pmsync/internal/services"
	"pmsync/internal/tracker"
	"pmsync/internal/tracker/trackertest"
)

func writeBody(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "comment.md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPostDryRunSkipsTracker(t *testing.T) {
	fake := trackertest.New("42")
	var preview bytes.Buffer
	p := New(Options{Tracker: fake, DryRun: true, Preview: &preview})

	result, err := p.Post(context.Background(), "42", writeBody(t, "Progress: 40%"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !result.DryRun || result.URL != DryRunURL("42") {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("expected no tracker calls, got %v", fake.Calls)
	}
	if !strings.Contains(preview.String(), "Progress: 40%") {
		t.Fatalf("expected preview output, got %q", preview.String())
	}
}

func TestPostReturnsURL(t *testing.T) {
	fake := trackertest.New("42")
	result, err := New(Options{Tracker: fake}).Post(context.Background(), "42", writeBody(t, "hello"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !result.Verified || !strings.HasSuffix(result.URL, "#issuecomment-1") {
		t.Fatalf("unexpected result %+v", result)
	}
	if fake.CallCount("ListRecentComments") != 0 {
		t.Fatal("verification should not list comments when the post returned a URL")
	}
}

func TestPostFallsBackToLatestComment(t *testing.T) {
	fake := trackertest.New("42")
	fake.OmitURL = true

	result, err := New(Options{Tracker: fake}).Post(context.Background(), "42", writeBody(t, "hello"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !result.Verified || !strings.HasSuffix(result.URL, "#issuecomment-1") {
		t.Fatalf("expected URL recovered from latest comment, got %+v", result)
	}
}

func TestPostVerificationFailureIsNotFatal(t *testing.T) {
	fake := trackertest.New("42")
	fake.OmitURL = true
	fake.ListErr = errors.New("rate limited")

	result, err := New(Options{Tracker: fake}).Post(context.Background(), "42", writeBody(t, "hello"))
	if err != nil {
		t.Fatalf("expected success despite failed verification, got %v", err)
	}
	if result.Verified || result.URL != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestPostFailureCarriesRemoteText(t *testing.T) {
	fake := trackertest.New("42")
	fake.PostErr = &tracker.RemoteError{Op: "gh issue comment", Output: "HTTP 502: bad gateway\n", Err: errors.New("exit status 1")}
	body := writeBody(t, "hello")

	_, err := New(Options{Tracker: fake}).Post(context.Background(), "42", body)
	var postErr *services.PostFailedError
	if !errors.As(err, &postErr) {
		t.Fatalf("expected PostFailedError, got %v", err)
	}
	if postErr.RemoteText != "HTTP 502: bad gateway" || postErr.BodyPath != body {
		t.Fatalf("unexpected error fields %+v", postErr)
	}
	if !errors.Is(err, services.ErrPostFailed) {
		t.Fatal("expected ErrPostFailed marker")
	}
	if _, statErr := os.Stat(body); statErr != nil {
		t.Fatal("comment file must be preserved for a manual retry")
	}
	if fake.CallCount("PostComment") != 1 {
		t.Fatal("post must not be retried")
	}
}
