package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"vidpress/internal/acquire"
	"vidpress/internal/config"
	"vidpress/internal/history"
	"vidpress/internal/imagegen"
	"vidpress/internal/logging"
	"vidpress/internal/publish"
	"vidpress/internal/retry"
	"vidpress/internal/workspace"
	"vidpress/internal/writer"
)

// Runner executes assembly runs against one configuration. A Runner may be
// reused for several runs; each run gets fresh collaborators.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	workspace *workspace.Workspace
	history   *history.Store
	now       func() time.Time
	policy    *retry.Policy

	frames       acquire.FrameSource
	generator    imagegen.Generator
	generatorSet bool
	store        publish.Store
	storeSet     bool
	planClient   writer.Client
}

// Option configures optional Runner behavior.
type Option func(*Runner)

// WithHistory records every run in store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithFrameSource replaces the ffmpeg capturer.
func WithFrameSource(frames acquire.FrameSource) Option {
	return func(r *Runner) { r.frames = frames }
}

// WithGenerator replaces the configured generation provider. A nil
// generator disables synthetic images.
func WithGenerator(gen imagegen.Generator) Option {
	return func(r *Runner) {
		r.generator = gen
		r.generatorSet = true
	}
}

// WithStore replaces the configured remote backend. A nil store keeps
// every asset local.
func WithStore(store publish.Store) Option {
	return func(r *Runner) {
		r.store = store
		r.storeSet = true
	}
}

// WithPlanClient replaces the configured LLM client.
func WithPlanClient(client writer.Client) Option {
	return func(r *Runner) { r.planClient = client }
}

// WithRetryPolicy replaces the policy built from the [retry] section.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(r *Runner) { r.policy = policy }
}

// WithClock replaces time.Now for run and object-key timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner prepares the configured directories and workspace.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow: config required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	ws, err := workspace.New(cfg.Paths.WorkspaceDir, logger)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		workspace: ws,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy == nil {
		r.policy = retry.New(cfg.Retry.MaxRetries, cfg.RetryBaseDelay(), cfg.RetryMaxDelay())
	}
	return r, nil
}

// Workspace exposes the run directory layout.
func (r *Runner) Workspace() *workspace.Workspace { return r.workspace }
