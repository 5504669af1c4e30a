package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pmsync/internal/config"
)

// LogFileName is the file written inside the configured log directory.
const LogFileName = "pmsync.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string // "console" (default) or "json"
	// OutputPaths lists files plus the special names "stdout" and "stderr".
	// Ignored when Writer is set.
	OutputPaths []string
	Writer      io.Writer
	// Development forces caller locations even above debug level.
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		paths := opts.OutputPaths
		if len(paths) == 0 {
			paths = []string{"stderr"}
		}
		var err error
		if out, err = openOutputs(paths); err != nil {
			return nil, err
		}
	}
	source := opts.Development || level <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(out, level, source)), nil
	case "json":
		return slog.New(newJSONHandler(out, level, source)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig writes to stderr and, when a log directory is configured, to
// LogFileName inside it. A non-empty levelOverride beats cfg.Logging.Level.
func NewFromConfig(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	opts := Options{Level: strings.TrimSpace(levelOverride)}
	if cfg == nil {
		return New(opts)
	}
	if opts.Level == "" {
		opts.Level = cfg.Logging.Level
	}
	opts.Format = cfg.Logging.Format
	opts.OutputPaths = []string{"stderr"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		opts.OutputPaths = append(opts.OutputPaths, filepath.Join(dir, LogFileName))
	}
	return New(opts)
}

// ParseLevel maps a textual level to its slog equivalent, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutputs fans out to every distinct path. Files are opened for append and
// their parent directories created.
func openOutputs(paths []string) (io.Writer, error) {
	opened := make(map[string]bool, len(paths))
	var writers []io.Writer
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" || opened[path] {
			continue
		}
		opened[path] = true
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create log dir for %s: %w", path, err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
