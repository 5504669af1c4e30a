package services

import "context"

// runKey scopes the per-run values stages stash on a context.
type runKey uint8

const (
	keyIssue runKey = iota
	keyEpic
	keyStage
	keyRunID
)

func withRunValue(ctx context.Context, key runKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func runValue(ctx context.Context, key runKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithIssue tags ctx with the tracker issue number being synced.
func WithIssue(ctx context.Context, issue string) context.Context {
	return withRunValue(ctx, keyIssue, issue)
}

func IssueFromContext(ctx context.Context) (string, bool) { return runValue(ctx, keyIssue) }

// WithEpic tags ctx with the epic the issue resolved to.
func WithEpic(ctx context.Context, epic string) context.Context {
	return withRunValue(ctx, keyEpic, epic)
}

func EpicFromContext(ctx context.Context) (string, bool) { return runValue(ctx, keyEpic) }

// WithStage tags ctx with the active stage. A blank stage leaves ctx untouched.
func WithStage(ctx context.Context, stage string) context.Context {
	return withRunValue(ctx, keyStage, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return runValue(ctx, keyStage) }

// WithRunID tags ctx with the run identifier recorded in history.
func WithRunID(ctx context.Context, id string) context.Context {
	return withRunValue(ctx, keyRunID, id)
}

func RunIDFromContext(ctx context.Context) (string, bool) { return runValue(ctx, keyRunID) }
