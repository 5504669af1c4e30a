package format

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pmsync/internal/config"
	"pmsync/internal/gather"
	"pmsync/internal/logging"
	"pmsync/internal/progress"
	"pmsync/internal/services"
	"pmsync/internal/workspace"
)

// budgetHeadroom is the gap between the default truncation budget and the
// comment ceiling.
const budgetHeadroom = 536

// Input names the files the formatter reads.
type Input struct {
	DocPath    string
	RecordPath string
	Completion bool
	// LocalRef is the location quoted by the truncation trailer.
	LocalRef string
}

// Result describes the formatted comment.
type Result struct {
	Path      string
	Bytes     int
	Truncated bool
	Percent   int
	Mode      Mode
}

// Options configures a Formatter.
type Options struct {
	Limit  int
	Budget int
	Logger *slog.Logger
	Now    func() time.Time
}

// Formatter turns consolidated documents into comment bodies.
type Formatter struct {
	opts Options
}

// New builds a Formatter. Limits outside the tracker ceiling are clamped.
func New(opts Options) *Formatter {
	if opts.Limit <= 0 || opts.Limit > config.MaxCommentBytes {
		opts.Limit = config.MaxCommentBytes
	}
	if opts.Budget <= 0 || opts.Budget >= opts.Limit {
		opts.Budget = opts.Limit - budgetHeadroom
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Formatter{opts: opts}
}

// Format renders the document at in.DocPath and writes the comment into ws.
func (f *Formatter) Format(ctx context.Context, in Input, ws *workspace.Workspace) (Result, error) {
	logger := logging.WithContext(ctx, f.opts.Logger)

	data, err := os.ReadFile(in.DocPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "format", "read document", in.DocPath, err)
	}
	doc, err := gather.ParseDocument(data)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "format", "parse document", in.DocPath, err)
	}

	mode := ModeProgress
	percent := 100
	if in.Completion {
		mode = ModeCompletion
	} else {
		percent = f.readPercent(logger, in.RecordPath)
	}

	body := Render(doc, mode, percent, f.opts.Now())
	localRef := in.LocalRef
	if localRef == "" {
		localRef = in.DocPath
	}
	natural := len(body)
	body, truncated := Enforce(body, f.opts.Limit, f.opts.Budget, localRef)
	if truncated {
		logging.WarnWithContext(logger, "comment truncated to fit tracker limit", "format_truncated",
			logging.Int("natural_bytes", natural),
			logging.Int("final_bytes", len(body)),
			logging.Int("limit", f.opts.Limit),
			logging.String(logging.FieldImpact, "the tail of the update is missing from the remote comment"),
			logging.String(logging.FieldErrorHint, "the full content stays in "+localRef),
		)
	}

	path, err := ws.WriteFile(workspace.CommentFile, []byte(body))
	if err != nil {
		return Result{}, fmt.Errorf("write comment: %w", err)
	}
	logger.Info("comment formatted",
		logging.String(logging.FieldEventType, "format_complete"),
		logging.String("mode", mode.String()),
		logging.Int("bytes", len(body)),
		logging.Bool("truncated", truncated),
	)
	return Result{Path: path, Bytes: len(body), Truncated: truncated, Percent: percent, Mode: mode}, nil
}

func (f *Formatter) readPercent(logger *slog.Logger, recordPath string) int {
	if recordPath == "" {
		return 0
	}
	rec, err := progress.Load(recordPath)
	if err == nil {
		var value int
		var ok bool
		value, ok, err = rec.Completion()
		if err == nil {
			if !ok {
				return 0
			}
			return value
		}
	}
	logging.WarnWithContext(logger, "completion unreadable; reporting 0%", "format_completion_unreadable",
		logging.String("record", recordPath),
		logging.Error(err),
		logging.String(logging.FieldImpact, "the comment shows 0% progress"),
		logging.String(logging.FieldErrorHint, "fix the completion field in progress.md"),
	)
	return 0
}
