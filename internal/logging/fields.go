package logging

import (
	"context"
	"log/slog"
	"time"

	"pmsync/internal/services"
)

// Keys shared by every component so log lines can be filtered per run.
const (
	FieldComponent = "component"
	FieldIssue     = "issue"
	FieldEpic      = "epic"
	FieldStage     = "stage"
	FieldRunID     = "run_id"

	// FieldEventType names what happened, e.g. "comment_posted".
	FieldEventType = "event_type"
	// FieldErrorHint is the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact says what the user loses when a warning fires.
	FieldImpact = "impact"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error attaches err under the "error" key. A nil error is recorded as such
// rather than dropped so the key is always present on failure lines.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields a
// discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

var contextLookups = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldEpic, services.EpicFromContext},
	{FieldIssue, services.IssueFromContext},
	{FieldStage, services.StageFromContext},
	{FieldRunID, services.RunIDFromContext},
}

// WithContext adds the run values carried by ctx (epic, issue, stage, run id)
// to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, field := range contextLookups {
		if value, ok := field.lookup(ctx); ok {
			args = append(args, slog.String(field.key, value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
