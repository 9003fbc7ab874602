package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vidpress/internal/logging"
	"vidpress/internal/services"
)

const (
	runsDirName   = "runs"
	lockFileName  = ".run.lock"
	framesDirName = "frames"
	assetsDirName = "assets"

	ArticleFile  = "article.md"
	ManifestFile = "manifest.json"
	PlanFile     = "plan.json"
	HTMLFile     = "article.html"
	LogFile      = "run.log"
)

// ErrRunLocked reports a run directory held by another process.
var ErrRunLocked = errors.New("run directory is locked")

// Workspace is the root holding every run directory.
type Workspace struct {
	root   string
	logger *slog.Logger
}

// New returns a Workspace rooted at root.
func New(root string, logger *slog.Logger) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "init", "workspace root is empty", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{root: abs, logger: logging.NewComponentLogger(logger, "workspace")}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// RunsDir returns the directory containing run directories.
func (w *Workspace) RunsDir() string { return filepath.Join(w.root, runsDirName) }

// RunDir returns the directory for a run id without creating it.
func (w *Workspace) RunDir(id string) string { return filepath.Join(w.RunsDir(), id) }

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Run is an active, locked run directory.
type Run struct {
	ID   string
	Dir  string
	lock *flock.Flock
}

// Create makes the directory tree for id and locks it. An empty id gets a
// generated one.
func (w *Workspace) Create(id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewRunID()
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, services.Wrap(services.ErrValidation, "workspace", "create", fmt.Sprintf("invalid run id %q", id), nil)
	}
	dir := w.RunDir(id)
	for _, sub := range []string{framesDirName, assetsDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrRunLocked)
	}
	w.logger.Debug("run directory ready", logging.String(logging.FieldRunID, id), logging.String("dir", dir))
	return &Run{ID: id, Dir: dir, lock: lock}, nil
}

// FramesDir holds captured frames for the run.
func (r *Run) FramesDir() string { return filepath.Join(r.Dir, framesDirName) }

// AssetsDir holds normalized image assets for the run.
func (r *Run) AssetsDir() string { return filepath.Join(r.Dir, assetsDirName) }

// ArticlePath is the assembled markdown location.
func (r *Run) ArticlePath() string { return filepath.Join(r.Dir, ArticleFile) }

// ManifestPath is the image manifest location.
func (r *Run) ManifestPath() string { return filepath.Join(r.Dir, ManifestFile) }

// PlanPath is where the validated input plan is copied.
func (r *Run) PlanPath() string { return filepath.Join(r.Dir, PlanFile) }

// HTMLPath is the rendered HTML location.
func (r *Run) HTMLPath() string { return filepath.Join(r.Dir, HTMLFile) }

// LogPath is the per-run JSON log.
func (r *Run) LogPath() string { return filepath.Join(r.Dir, LogFile) }

// Release drops the run lock. The directory and artifacts stay.
func (r *Run) Release() error {
	if r == nil || r.lock == nil {
		return nil
	}
	return r.lock.Unlock()
}

// Active reports whether some process currently holds the lock for the run
// directory. A directory without a lock file is not active.
func Active(runDir string) bool {
	path := filepath.Join(runDir, lockFileName)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = lock.Unlock()
	return false
}
