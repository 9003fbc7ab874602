package workflow

import (
	"log/slog"
	"strings"

	"vidpress/internal/logging"
	"vidpress/internal/workspace"
)

// runLogger tees the runner logger into a JSON log inside the run
// directory, so a run can be diagnosed from its own folder.
func (r *Runner) runLogger(run *workspace.Run) *slog.Logger {
	level := "info"
	if lvl := strings.TrimSpace(r.cfg.Logging.Level); lvl != "" {
		level = lvl
	}
	fileLogger, err := logging.New(logging.Options{
		Level:   level,
		Format:  "json",
		Outputs: []string{run.LogPath()},
	})
	if err != nil {
		r.logger.Warn("run log unavailable", logging.Error(err), logging.String("path", run.LogPath()))
		return r.logger.With(logging.String(logging.FieldRunID, run.ID))
	}
	return logging.Tee(r.logger, fileLogger.Handler()).With(logging.String(logging.FieldRunID, run.ID))
}
