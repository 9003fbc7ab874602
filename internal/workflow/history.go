package workflow

import (
	"context"
	"errors"
	"log/slog"

	"vidpress/internal/history"
	"vidpress/internal/logging"
)

func (r *Runner) beginHistory(ctx context.Context, run history.Run) error {
	if r.history == nil {
		return nil
	}
	return r.history.Begin(ctx, run)
}

// finishHistory records the outcome. It runs detached from ctx so a
// cancelled run is still recorded as cancelled.
func (r *Runner) finishHistory(ctx context.Context, logger *slog.Logger, res Result, runErr error) {
	status := res.Status
	if !status.IsFinal() {
		status = history.StatusFailed
	}
	if runErr != nil && status == history.StatusSuccess {
		status = history.StatusFailed
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		status = history.StatusCancelled
	}

	fields := []logging.Attr{
		logging.String("status", string(status)),
		logging.Int("published", res.Counts.Published),
		logging.Int("local_only", res.Counts.LocalOnly),
		logging.Int("skipped", res.Counts.Skipped),
		logging.Int("failed", res.Counts.Failed),
		logging.Duration("elapsed", res.Elapsed),
	}
	switch status {
	case history.StatusSuccess:
		logger.Info("run finished", logging.Args(append(fields, logging.String(logging.FieldEventType, "run_finished"))...)...)
	case history.StatusCancelled:
		logging.WarnWithContext(logger, "run cancelled", "run_cancelled", append(fields,
			logging.String(logging.FieldErrorHint, "rerun to illustrate the remaining sections"),
			logging.String(logging.FieldImpact, "interrupted sections have no image"),
		)...)
	default:
		logging.ErrorWithContext(logger, "run failed", "run_failed", append(fields, logging.Error(runErr))...)
	}

	if r.history == nil {
		return
	}
	outcome := history.Outcome{
		Status: status,
		Title:  res.Title,
		Counts: res.Counts,
		Err:    runErr,
	}
	if res.Status == history.StatusSuccess || res.Status == history.StatusCancelled {
		outcome.ArticlePath = res.ArticlePath
		outcome.ManifestPath = res.ManifestPath
	}
	if err := r.history.Finish(context.WithoutCancel(ctx), res.RunID, outcome); err != nil {
		logging.WarnWithContext(logger, "history update failed", "history_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory"),
			logging.String(logging.FieldImpact, "run stays marked running in history"),
		)
	}
}
