package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// PlaceholderVideo writes a stand-in source video under dir and returns its
// path. Stubbed ffmpeg and ffprobe never read the contents.
func PlaceholderVideo(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("\x00\x00\x00\x18ftypmp42"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
