package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"vidpress/internal/logging"
	"vidpress/internal/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "ws"), logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return ws
}

func TestCreateLaysOutRunDirectory(t *testing.T) {
	ws := newWorkspace(t)
	run, err := ws.Create("")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer run.Release()

	if run.ID == "" || run.Dir != ws.RunDir(run.ID) {
		t.Fatalf("unexpected run: %+v", run)
	}
	for _, dir := range []string{run.FramesDir(), run.AssetsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if filepath.Base(run.ArticlePath()) != workspace.ArticleFile ||
		filepath.Base(run.ManifestPath()) != workspace.ManifestFile ||
		filepath.Base(run.PlanPath()) != workspace.PlanFile ||
		filepath.Base(run.HTMLPath()) != workspace.HTMLFile {
		t.Fatal("unexpected artifact names")
	}
}

func TestCreateLocksRunDirectory(t *testing.T) {
	ws := newWorkspace(t)
	run, err := ws.Create("fixed-id")
	if err != nil {
		t.Fatal(err)
	}
	if !workspace.Active(run.Dir) {
		t.Fatal("expected locked run to be active")
	}
	if _, err := ws.Create("fixed-id"); !errors.Is(err, workspace.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	if err := run.Release(); err != nil {
		t.Fatal(err)
	}
	if workspace.Active(run.Dir) {
		t.Fatal("expected released run to be inactive")
	}
}

func TestCreateRejectsPathLikeIDs(t *testing.T) {
	ws := newWorkspace(t)
	for _, id := range []string{"../escape", "a/b", ".."} {
		if _, err := ws.Create(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	if _, err := workspace.New("  ", nil); err == nil {
		t.Fatal("expected empty root to be rejected")
	}
}

func TestPruneRemovesOnlyOldInactiveRuns(t *testing.T) {
	ws := newWorkspace(t)
	old := time.Now().AddDate(0, 0, -10)

	mk := func(id string, mtime time.Time) *workspace.Run {
		run, err := ws.Create(id)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(run.Dir, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return run
	}
	stale := mk("stale", old)
	stale.Release()
	kept := mk("kept", old)
	kept.Release()
	live := mk("live", old)
	defer live.Release()
	fresh := mk("fresh", time.Now())
	fresh.Release()

	removed := ws.Prune(5, "kept")
	if !slices.Equal(removed, []string{"stale"}) {
		t.Fatalf("unexpected pruned runs: %v", removed)
	}
	for _, id := range []string{"kept", "live", "fresh"} {
		if _, err := os.Stat(ws.RunDir(id)); err != nil {
			t.Fatalf("expected %s to survive: %v", id, err)
		}
	}
	if _, err := os.Stat(ws.RunDir("stale")); !os.IsNotExist(err) {
		t.Fatalf("expected stale run removed, got %v", err)
	}
}

func TestPruneDisabled(t *testing.T) {
	ws := newWorkspace(t)
	if removed := ws.Prune(0); removed != nil {
		t.Fatalf("expected no pruning, got %v", removed)
	}
}
