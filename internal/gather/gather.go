package gather

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pmsync/internal/logging"
	"pmsync/internal/progress"
	"pmsync/internal/workspace"
)

// DefaultCommitLimit caps the commits fallback.
const DefaultCommitLimit = 10

// Input identifies the issue whose fragments are gathered.
type Input struct {
	Issue     string
	Epic      string
	UpdateDir string
	LastSync  time.Time
}

// Result is the gatherer output.
type Result struct {
	Path     string
	Document *Document
	// Defaulted lists known categories that fell back to canned text.
	Defaulted []string
}

// Options configures a Gatherer.
type Options struct {
	// RepoDir is where the commits fallback looks for a git repository.
	RepoDir string
	// CommitLimit of zero means DefaultCommitLimit; negative disables the
	// fallback.
	CommitLimit int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Gatherer consolidates update fragments.
type Gatherer struct {
	opts Options
}

// New builds a Gatherer.
func New(opts Options) *Gatherer {
	if opts.CommitLimit == 0 {
		opts.CommitLimit = DefaultCommitLimit
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gatherer{opts: opts}
}

// Gather reads every fragment under in.UpdateDir, writes the per-section
// extracts and the consolidated document into ws, and returns its path.
// Missing or unreadable fragments never fail the run.
func (g *Gatherer) Gather(ctx context.Context, in Input, ws *workspace.Workspace) (Result, error) {
	logger := logging.WithContext(ctx, g.opts.Logger)
	doc := &Document{
		Issue: in.Issue,
		Epic:  in.Epic,
		Since: in.LastSync,
		Until: g.opts.Now(),
	}
	var result Result

	for _, cat := range categories {
		content := g.readKnown(ctx, logger, in, cat)
		if isDefault(content, cat.Default) {
			result.Defaulted = append(result.Defaulted, cat.Key)
			continue
		}
		doc.Sections = append(doc.Sections, Section{Key: cat.Key, Title: cat.Title, Content: content})
	}

	names, err := progress.ListFragments(in.UpdateDir)
	if err != nil {
		logging.WarnWithContext(logger, "could not list update fragments", "gather_list_failed",
			logging.String("update_dir", in.UpdateDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "additional fragments are left out of this update"),
			logging.String(logging.FieldErrorHint, "check update directory permissions"),
		)
	}
	used := make(map[string]struct{})
	for _, name := range names {
		key := FragmentKey(name)
		if isKnown(key) && name == key+progress.FragmentExt {
			continue
		}
		content, ok := g.readFragment(logger, filepath.Join(in.UpdateDir, name))
		if !ok || content == "" {
			continue
		}
		key = uniqueKey(key, used)
		doc.Sections = append(doc.Sections, Section{Key: key, Title: Humanize(name), Content: content})
	}

	for _, s := range doc.Sections {
		rel, _ := filepath.Rel(ws.Dir, ws.SectionPath(s.Key))
		if _, err := ws.WriteFile(rel, []byte(s.Content+"\n")); err != nil {
			logger.Debug("section extract not written", logging.String("section", s.Key), logging.Error(err))
		}
	}

	path, err := ws.WriteFile(workspace.ConsolidatedFile, doc.Render())
	if err != nil {
		return result, fmt.Errorf("write consolidated document: %w", err)
	}
	result.Path = path
	result.Document = doc

	logger.Info("updates gathered",
		logging.String(logging.FieldEventType, "gather_complete"),
		logging.Int("sections", len(doc.Sections)),
		logging.String("window", doc.Window()),
		logging.String("document", path),
	)
	return result, nil
}

func (g *Gatherer) readKnown(ctx context.Context, logger *slog.Logger, in Input, cat Category) string {
	switch cat.Key {
	case KeyProgress:
		content, _ := g.readFragment(logger, progress.RecordPath(in.UpdateDir))
		return content
	case KeyCommits:
		path := filepath.Join(in.UpdateDir, cat.Key+progress.FragmentExt)
		if _, err := os.Stat(path); err == nil {
			content, _ := g.readFragment(logger, path)
			return content
		}
		return g.commitFallback(ctx, logger, in.LastSync)
	default:
		content, _ := g.readFragment(logger, filepath.Join(in.UpdateDir, cat.Key+progress.FragmentExt))
		return content
	}
}

func (g *Gatherer) commitFallback(ctx context.Context, logger *slog.Logger, since time.Time) string {
	if g.opts.RepoDir == "" || g.opts.CommitLimit < 0 {
		return ""
	}
	lines, err := RecentCommits(ctx, g.opts.RepoDir, since, g.opts.CommitLimit)
	if err != nil {
		logger.Debug("commit fallback unavailable", logging.String("repo_dir", g.opts.RepoDir), logging.Error(err))
		return ""
	}
	return strings.Join(lines, "\n")
}

// readFragment returns the trimmed body of path with any header stripped.
// ok is false when the file is absent or unreadable.
func (g *Gatherer) readFragment(logger *slog.Logger, path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.WarnWithContext(logger, "update fragment unreadable", "gather_fragment_unreadable",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the section falls back to its default text"),
				logging.String(logging.FieldErrorHint, "check the fragment file permissions"),
			)
		}
		return "", false
	}
	return strings.TrimSpace(progress.StripFrontmatter(data)), true
}

func isDefault(content, canned string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == canned
}

func uniqueKey(key string, used map[string]struct{}) string {
	candidate := key
	for i := 2; ; i++ {
		if _, taken := used[candidate]; !taken && !isKnown(candidate) {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", key, i)
	}
}
