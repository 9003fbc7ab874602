package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"vidpress/internal/acquire"
	"vidpress/internal/assemble"
	"vidpress/internal/config"
	"vidpress/internal/history"
	"vidpress/internal/imagegen"
	"vidpress/internal/imaging"
	"vidpress/internal/logging"
	"vidpress/internal/manifest"
	"vidpress/internal/media/frames"
	"vidpress/internal/plan"
	"vidpress/internal/preflight"
	"vidpress/internal/publish"
	"vidpress/internal/services"
	"vidpress/internal/textutil"
	"vidpress/internal/workspace"
)

// AssembleRequest names the inputs of one assembly run. Plan wins over
// PlanPath when both are set.
type AssembleRequest struct {
	PlanPath string
	Plan     plan.RawPlan
	Video    string
	// Strategy overrides assembly.strategy when set.
	Strategy string
	// SourceID is the object-key segment; derived from the video or plan
	// file name when empty.
	SourceID string
	RunID    string
}

// Result describes a finished run.
type Result struct {
	RunID        string            `json:"run_id"`
	RunDir       string            `json:"run_dir"`
	Status       history.Status    `json:"status"`
	Title        string            `json:"title"`
	Strategy     string            `json:"strategy"`
	ArticlePath  string            `json:"article_path"`
	ManifestPath string            `json:"manifest_path"`
	PlanPath     string            `json:"plan_path"`
	HTMLPath     string            `json:"html_path,omitempty"`
	Counts       history.Counts    `json:"counts"`
	Cancelled    bool              `json:"cancelled,omitempty"`
	Elapsed      time.Duration     `json:"elapsed"`
	Manifest     manifest.Manifest `json:"-"`
}

// Assemble validates the plan, assembles the article in a fresh run
// directory and writes its artifacts. An invalid plan returns a
// *plan.InvalidPlanError before any directory is created. A cancelled
// context still writes the partial artifacts and returns them together
// with the context error.
func (r *Runner) Assemble(ctx context.Context, req AssembleRequest) (Result, error) {
	strategy := strings.TrimSpace(req.Strategy)
	if strategy == "" {
		strategy = r.cfg.Assembly.Strategy
	}
	if _, err := acquire.Paths(strategy); err != nil {
		return Result{}, err
	}

	raw := req.Plan
	if raw == nil {
		loaded, err := loadPlan(req.PlanPath)
		if err != nil {
			return Result{}, err
		}
		raw = loaded
	}
	validated, err := plan.Validate(raw, plan.Options{MaxImages: r.cfg.Assembly.MaxImages})
	if err != nil {
		return Result{}, err
	}

	if check := preflight.CheckDirectoryAccess("Workspace directory", r.workspace.Root()); !check.Passed {
		return Result{}, services.Wrap(services.ErrConfiguration, "workflow", "workspace", check.Detail, nil)
	}
	r.workspace.Prune(r.cfg.Paths.RetentionDays)

	run, err := r.workspace.Create(req.RunID)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := run.Release(); err != nil {
			r.logger.Warn("release run lock failed", logging.Error(err))
		}
	}()

	started := r.now()
	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, r.runLogger(run))

	res := Result{
		RunID:        run.ID,
		RunDir:       run.Dir,
		Status:       history.StatusRunning,
		Title:        validated.Title,
		Strategy:     strategy,
		ArticlePath:  run.ArticlePath(),
		ManifestPath: run.ManifestPath(),
		PlanPath:     run.PlanPath(),
	}
	if err := r.beginHistory(ctx, history.Run{
		ID:          run.ID,
		Title:       validated.Title,
		Strategy:    strategy,
		SourceVideo: req.Video,
		PlanPath:    req.PlanPath,
		RunDir:      run.Dir,
		CreatedAt:   started,
	}); err != nil {
		return res, err
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("strategy", strategy),
		logging.String("title", validated.Title),
		logging.Int("sections", len(validated.Sections)),
		logging.Int("images_needed", validated.NeededCount()),
		logging.String("video", req.Video),
	)

	res, runErr := r.assemble(ctx, logger, run, validated, req, res, started)
	res.Elapsed = r.now().Sub(started)
	r.finishHistory(ctx, logger, res, runErr)
	return res, runErr
}

func (r *Runner) assemble(
	ctx context.Context,
	logger *slog.Logger,
	run *workspace.Run,
	validated plan.ArticlePlan,
	req AssembleRequest,
	res Result,
	started time.Time,
) (Result, error) {
	assembler, err := r.buildAssembler(ctx, logger, run, res.Strategy, req, validated)
	if err != nil {
		res.Status = history.StatusFailed
		return res, err
	}

	mw := manifest.NewWriter(manifest.Manifest{
		RunID:       run.ID,
		CreatedAt:   started.UTC(),
		Title:       validated.Title,
		Strategy:    res.Strategy,
		SourceVideo: req.Video,
	})
	article, err := assembler.Assemble(ctx, validated, mw)
	if err != nil {
		res.Status = history.StatusFailed
		return res, err
	}

	html, err := r.writeArtifacts(run, validated, article, mw)
	if err != nil {
		res.Status = history.StatusFailed
		return res, err
	}
	res.HTMLPath = html
	res.Manifest = mw.Manifest()
	res.Counts = countsOf(res.Manifest)
	res.Cancelled = article.Cancelled

	if article.Cancelled {
		res.Status = history.StatusCancelled
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return res, cause
	}
	res.Status = history.StatusSuccess
	return res, nil
}

// buildAssembler wires fresh per-run collaborators. Missing optional
// providers degrade: no generator means synthetic paths fail, no store
// means assets stay local.
func (r *Runner) buildAssembler(
	ctx context.Context,
	logger *slog.Logger,
	run *workspace.Run,
	strategy string,
	req AssembleRequest,
	validated plan.ArticlePlan,
) (*assemble.Assembler, error) {
	acquirer, err := acquire.New(acquire.Options{
		Strategy:  strategy,
		Frames:    r.frameSource(run, req.Video, logger),
		Generator: r.generatorFor(ctx, strategy, logger),
		Policy:    r.policy,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	normalizer, err := imaging.NewNormalizer(imaging.OptionsFromConfig(r.cfg.Image))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "normalizer", "", err)
	}
	publisher := publish.New(r.storeFor(ctx, logger), publish.Options{
		Prefix:   r.cfg.Publish.Prefix,
		Style:    r.cfg.Publish.Style,
		SourceID: sourceID(req, validated),
		Policy:   r.policy,
		Logger:   logger,
		Now:      r.now,
	})
	return assemble.New(assemble.Options{
		Images:      acquirer,
		Normalizer:  normalizer,
		Publisher:   publisher,
		Parallelism: r.cfg.Assembly.Parallelism,
		AssetDir:    run.AssetsDir(),
		Video:       req.Video,
		Render: plan.RenderOptions{
			ConclusionHeading: r.cfg.Render.ConclusionHeading,
			TagsLabel:         r.cfg.Render.TagsLabel,
		},
		Logger: logger,
	})
}

func (r *Runner) frameSource(run *workspace.Run, video string, logger *slog.Logger) acquire.FrameSource {
	if r.frames != nil {
		return r.frames
	}
	if strings.TrimSpace(video) == "" {
		return nil
	}
	return frames.NewCapturer(frames.Options{
		FFmpegBinary:  r.cfg.Capture.FFmpegBinary,
		FFprobeBinary: r.cfg.Capture.FFprobeBinary,
		Timeout:       r.cfg.CaptureTimeout(),
		WorkDir:       run.FramesDir(),
		Logger:        logger,
	})
}

func (r *Runner) generatorFor(ctx context.Context, strategy string, logger *slog.Logger) imagegen.Generator {
	if r.generatorSet {
		return r.generator
	}
	if strategy == config.StrategyVideoOnly {
		return nil
	}
	gen, err := imagegen.New(ctx, r.cfg.Generation, imagegen.WithLogger(logger))
	if errors.Is(err, imagegen.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		logging.WarnWithContext(logger, "image generator unavailable",
			"generator_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [generation] section"),
			logging.String(logging.FieldImpact, "synthetic images will fail"),
		)
		return nil
	}
	return gen
}

func (r *Runner) storeFor(ctx context.Context, logger *slog.Logger) publish.Store {
	if r.storeSet {
		return r.store
	}
	store, err := publish.NewStore(ctx, r.cfg.Publish, publish.WithStoreLogger(logger))
	if errors.Is(err, publish.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		logging.WarnWithContext(logger, "image hosting unavailable",
			"publish_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [publish] section"),
			logging.String(logging.FieldImpact, "images will use local file URLs"),
		)
		return nil
	}
	return store
}

func sourceID(req AssembleRequest, validated plan.ArticlePlan) string {
	if id := strings.TrimSpace(req.SourceID); id != "" {
		return textutil.Slug(id)
	}
	switch {
	case strings.TrimSpace(req.Video) != "":
		return textutil.SourceID(req.Video)
	case strings.TrimSpace(req.PlanPath) != "":
		return textutil.SourceID(req.PlanPath)
	default:
		return textutil.Slug(validated.Title)
	}
}

func loadPlan(path string) (plan.RawPlan, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load plan", "plan path required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load plan", path, err)
	}
	raw, err := plan.Parse(data, plan.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

func countsOf(m manifest.Manifest) history.Counts {
	counts := m.Counts()
	return history.Counts{
		Published: counts[manifest.StatusPublished],
		LocalOnly: counts[manifest.StatusLocalOnly],
		Skipped:   counts[manifest.StatusSkippedNoMatch],
		Failed:    counts[manifest.StatusFailed],
	}
}
