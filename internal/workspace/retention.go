package workspace

import (
	"os"
	"path/filepath"
	"time"

	"vidpress/internal/logging"
)

// Prune removes run directories whose last modification is older than
// retentionDays. Active runs and the ids in keep are never touched. A
// retentionDays value of 0 disables pruning. It returns the removed ids.
func (w *Workspace) Prune(retentionDays int, keep ...string) []string {
	if retentionDays <= 0 {
		return nil
	}
	return w.pruneBefore(time.Now().AddDate(0, 0, -retentionDays), keep...)
}

func (w *Workspace) pruneBefore(cutoff time.Time, keep ...string) []string {
	entries, err := os.ReadDir(w.RunsDir())
	if err != nil {
		return nil
	}
	skip := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		skip[id] = struct{}{}
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		if _, ok := skip[id]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		dir := filepath.Join(w.RunsDir(), id)
		if Active(dir) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			logging.WarnWithContext(w.logger, "run retention remove failed; directory remains", "run_retention_failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on workspace_dir"),
				logging.String(logging.FieldImpact, "old run artifacts remain on disk"),
			)
			continue
		}
		w.logger.Info("run directory pruned",
			logging.String(logging.FieldRunID, id),
			logging.String(logging.FieldEventType, "run_pruned"),
		)
		removed = append(removed, id)
	}
	return removed
}
