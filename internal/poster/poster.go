// Package poster submits formatted comments to the remote issue and confirms
// they landed.
package poster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pmsync/internal/logging"
	"pmsync/internal/services"
	"pmsync/internal/tracker"
)

// DryRunURL is returned in place of a comment URL when nothing was posted.
func DryRunURL(issue string) string {
	return fmt.Sprintf("dry-run://issues/%s/comments/preview", issue)
}

// Result reports the outcome of a post.
type Result struct {
	URL      string
	DryRun   bool
	Verified bool
}

// Options configures a Poster.
type Options struct {
	Tracker tracker.Tracker
	DryRun  bool
	// Preview receives the comment body in dry-run mode.
	Preview io.Writer
	Logger  *slog.Logger
}

// Poster posts comment bodies.
type Poster struct {
	opts Options
}

// New builds a Poster.
func New(opts Options) *Poster {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Preview == nil {
		opts.Preview = io.Discard
	}
	return &Poster{opts: opts}
}

// Post submits the body stored at bodyPath to issue. Rejections return a
// *services.PostFailedError and are never retried. A post that succeeded but
// could not be confirmed is only logged.
func (p *Poster) Post(ctx context.Context, issue, bodyPath string) (Result, error) {
	logger := logging.WithContext(ctx, p.opts.Logger)

	if p.opts.DryRun {
		body, err := os.ReadFile(bodyPath)
		if err != nil {
			return Result{}, services.Wrap(services.ErrValidation, "post", "read comment", bodyPath, err)
		}
		fmt.Fprintf(p.opts.Preview, "--- dry run: comment for issue #%s (%d bytes) ---\n", issue, len(body))
		_, _ = p.opts.Preview.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			fmt.Fprintln(p.opts.Preview)
		}
		fmt.Fprintf(p.opts.Preview, "--- end of preview; comment file %s ---\n", bodyPath)
		logger.Info("dry run: comment not posted",
			logging.String(logging.FieldEventType, "post_dry_run"),
			logging.String("comment_file", bodyPath),
			logging.Int("bytes", len(body)),
		)
		return Result{URL: DryRunURL(issue), DryRun: true}, nil
	}

	if p.opts.Tracker == nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "post", "post comment", "no tracker configured", nil)
	}
	url, err := p.opts.Tracker.PostComment(ctx, issue, bodyPath)
	if err != nil {
		return Result{}, &services.PostFailedError{
			Issue:      issue,
			BodyPath:   bodyPath,
			RemoteText: tracker.RemoteText(err),
			Err:        err,
		}
	}

	result := Result{URL: strings.TrimSpace(url)}
	if result.URL == "" {
		result.URL = p.latestCommentURL(ctx, logger, issue)
	}
	result.Verified = result.URL != ""
	if !result.Verified {
		logging.WarnWithContext(logger, "comment posted but could not be confirmed", "post_unverified",
			logging.String(logging.FieldImpact, "last_comment_url will not be updated"),
			logging.String(logging.FieldErrorHint, "check the issue manually: gh issue view "+issue+" --comments"),
		)
	}
	logger.Info("comment posted",
		logging.String(logging.FieldEventType, "post_complete"),
		logging.String("comment_url", result.URL),
		logging.Bool("verified", result.Verified),
	)
	return result, nil
}

func (p *Poster) latestCommentURL(ctx context.Context, logger *slog.Logger, issue string) string {
	comments, err := p.opts.Tracker.ListRecentComments(ctx, issue, 1)
	if err != nil {
		logger.Debug("comment verification failed", logging.Error(err))
		return ""
	}
	if len(comments) == 0 {
		return ""
	}
	return strings.TrimSpace(comments[len(comments)-1].URL)
}
