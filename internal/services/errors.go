package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAuth           = errors.New("authentication error")
	ErrRemoteNotFound = errors.New("remote issue not found")
	ErrPostFailed     = errors.New("post failed")
	ErrCorruption     = errors.New("corruption detected")
	ErrAborted        = errors.New("aborted")
	ErrValidation     = errors.New("validation error")
	ErrExternalTool   = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// PostFailedError carries the raw tracker output for a rejected comment along
// with the preserved body file so the operator can retry by hand.
type PostFailedError struct {
	Issue      string
	BodyPath   string
	RemoteText string
	Err        error
}

func (e *PostFailedError) Error() string {
	msg := fmt.Sprintf("post comment to issue #%s", e.Issue)
	if text := strings.TrimSpace(e.RemoteText); text != "" {
		msg += ": " + text
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PostFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPostFailed}
	}
	return []error{ErrPostFailed, e.Err}
}

// Hint returns operator-facing next steps for a classified error. Unknown
// errors get a generic pointer at the logs.
func Hint(err error) []string {
	if err == nil {
		return nil
	}
	var postErr *PostFailedError
	switch {
	case errors.As(err, &postErr):
		hints := []string{"verify the issue exists and accepts comments: gh issue view " + postErr.Issue}
		if postErr.BodyPath != "" {
			hints = append(hints, fmt.Sprintf("retry manually: gh issue comment %s --body-file %s", postErr.Issue, postErr.BodyPath))
		}
		return hints
	case errors.Is(err, ErrNotFound):
		return []string{
			"initialize tracking for the issue first (create updates/<issue>/progress.md under its epic)",
			"check paths.epics_dir in the configuration",
		}
	case errors.Is(err, ErrAuth):
		return []string{"re-authenticate the tracker client: gh auth login", "confirm with: gh auth status"}
	case errors.Is(err, ErrRemoteNotFound):
		return []string{"verify the issue number manually: gh issue view <issue>", "set tracker.repo if the issue lives in another repository"}
	case errors.Is(err, ErrCorruption):
		return []string{"the progress record was restored from its pre-run backup", "inspect the record header before retrying the sync"}
	case errors.Is(err, ErrAborted):
		return []string{"rerun with --force to skip confirmations"}
	case errors.Is(err, ErrValidation):
		return []string{"check the command arguments and configuration values"}
	default:
		return []string{"rerun with --log-level debug for details"}
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
