package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pmsync/internal/config"
)

// ConfigOption adjusts the config NewConfig builds. base is the test's temp
// directory, which holds every configured path.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a config whose paths all live under a fresh temp
// directory: <base>/project with an empty .claude/epics tree, plus workspace,
// logs and history.db beside it. History starts disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ProjectRoot = filepath.Join(base, "project")
	cfg.Paths.EpicsDir = filepath.Join(cfg.Paths.ProjectRoot, ".claude", "epics")
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History = config.History{Path: filepath.Join(base, "history.db")}

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	mkdirAll(t, cfg.Paths.EpicsDir, cfg.Paths.WorkspaceDir)
	return &cfg
}

// WithHistory enables the sqlite ledger.
func WithHistory() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) { cfg.History.Enabled = true }
}

// WithDryRun turns on the process-wide dry-run flag.
func WithDryRun() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) { cfg.Sync.DryRun = true }
}

// WithStubbedBinaries puts no-op executables with the given names (default
// "gh") first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	if len(names) == 0 {
		names = []string{"gh"}
	}
	return func(t testing.TB, base string, _ *config.Config) {
		t.Helper()
		bin := filepath.Join(base, "bin")
		mkdirAll(t, bin)
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func mkdirAll(t testing.TB, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
}
