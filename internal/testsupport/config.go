package testsupport

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"vidpress/internal/config"
)

// ConfigOption adjusts a test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns defaults rooted in a fresh temp directory, with image
// generation and remote publishing off and retry delays at zero so tests
// stay offline and fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(root, "workspace")
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Generation.Provider = config.GenerationNone
	cfg.Publish.Backend = config.PublishNone
	cfg.Retry.BaseDelayMillis, cfg.Retry.MaxDelayMillis = 0, 0
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithStrategy sets assembly.strategy.
func WithStrategy(strategy string) ConfigOption {
	return func(cfg *config.Config) { cfg.Assembly.Strategy = strategy }
}

// StubBinary writes <base>/bin/<name> as a shell script and puts that
// directory first on PATH until the test ends.
func StubBinary(t testing.TB, base, name, body string) string {
	t.Helper()

	dir := filepath.Join(base, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	current := os.Getenv("PATH")
	if entries := filepath.SplitList(current); !slices.Contains(entries[:min(1, len(entries))], dir) {
		t.Setenv("PATH", dir+string(os.PathListSeparator)+current)
	}
	return path
}
