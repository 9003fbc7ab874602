package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, status, title, strategy, source_video, plan_path, run_dir, article_path, manifest_path, published_count, local_only_count, skipped_count, failed_count, error_message, created_at, finished_at"

// ErrUnknownRun is returned by Finish for ids that were never begun.
var ErrUnknownRun = errors.New("unknown run")

// Begin inserts run in the running state. CreatedAt defaults to now.
func (s *Store) Begin(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.exec(
		ctx,
		`INSERT INTO runs (
            id, status, title, strategy, source_video, plan_path, run_dir, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		StatusRunning,
		nullableString(run.Title),
		run.Strategy,
		nullableString(run.SourceVideo),
		nullableString(run.PlanPath),
		nullableString(run.RunDir),
		formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the final state of a run.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	if !outcome.Status.IsFinal() {
		return fmt.Errorf("finish run %s: status %q is not final", id, outcome.Status)
	}
	var errMsg string
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}
	res, err := s.exec(
		ctx,
		`UPDATE runs SET
            status = ?, title = COALESCE(?, title), article_path = ?, manifest_path = ?,
            published_count = ?, local_only_count = ?, skipped_count = ?, failed_count = ?,
            error_message = ?, finished_at = ?
        WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.Title),
		nullableString(outcome.ArticlePath),
		nullableString(outcome.ManifestPath),
		outcome.Counts.Published,
		outcome.Counts.LocalOnly,
		outcome.Counts.Skipped,
		outcome.Counts.Failed,
		nullableString(errMsg),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrUnknownRun)
	}
	return nil
}

// Get fetches a run by id. A missing run returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindByPrefix resolves an abbreviated run id. It returns nil when nothing
// matches and an error when the prefix is ambiguous.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	runs, err := collectRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// AbandonRunning marks runs still in the running state as failed. The CLI
// calls it for runs whose workspace lock is no longer held.
func (s *Store) AbandonRunning(ctx context.Context, ids []string, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := []any{StatusFailed, reason, formatTime(time.Now()), StatusRunning}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.exec(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ?
        WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon runs: %w", err)
	}
	return res.RowsAffected()
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		statusRaw    string
		title        sql.NullString
		sourceVideo  sql.NullString
		planPath     sql.NullString
		runDir       sql.NullString
		articlePath  sql.NullString
		manifestPath sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&statusRaw,
		&title,
		&run.Strategy,
		&sourceVideo,
		&planPath,
		&runDir,
		&articlePath,
		&manifestPath,
		&run.Counts.Published,
		&run.Counts.LocalOnly,
		&run.Counts.Skipped,
		&run.Counts.Failed,
		&errorMessage,
		&createdRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	status, ok := ParseStatus(statusRaw)
	if !ok {
		return nil, fmt.Errorf("run %s has unknown status %q", run.ID, statusRaw)
	}
	run.Status = status
	run.Title = title.String
	run.SourceVideo = sourceVideo.String
	run.PlanPath = planPath.String
	run.RunDir = runDir.String
	run.ArticlePath = articlePath.String
	run.ManifestPath = manifestPath.String
	run.ErrorMessage = errorMessage.String
	if t, ok := parseTime(createdRaw); ok {
		run.CreatedAt = t
	}
	if t, ok := parseTime(finishedRaw); ok {
		run.FinishedAt = &t
	}
	return &run, nil
}
