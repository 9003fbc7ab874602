package manifest_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vidpress/internal/fileutil"
	"vidpress/internal/manifest"
)

func TestWriterKeepsDocumentOrder(t *testing.T) {
	w := manifest.NewWriter(manifest.Manifest{RunID: "r1"})
	if err := w.Append(manifest.Entry{SectionIndex: 2, Status: manifest.StatusSkippedNoMatch}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(manifest.Entry{SectionIndex: 1, Status: manifest.StatusFailed}); err == nil {
		t.Fatal("expected out-of-order append to fail")
	}
	if err := w.Append(manifest.Entry{SectionIndex: 2, Status: manifest.StatusFailed}); err == nil {
		t.Fatal("expected duplicate section to fail")
	}
}

func TestEntryReferenceInvariant(t *testing.T) {
	ref := &manifest.Reference{URL: "file:///tmp/a.jpg", LocalPath: "/tmp/a.jpg"}
	tests := []struct {
		name  string
		entry manifest.Entry
		ok    bool
	}{
		{"local with ref", manifest.Entry{SectionIndex: 1, Status: manifest.StatusLocalOnly, Reference: ref}, true},
		{"local without ref", manifest.Entry{SectionIndex: 1, Status: manifest.StatusLocalOnly}, false},
		{"skipped with ref", manifest.Entry{SectionIndex: 1, Status: manifest.StatusSkippedNoMatch, Reference: ref}, false},
		{"published local ref", manifest.Entry{SectionIndex: 1, Status: manifest.StatusPublished, Reference: ref}, false},
		{"unknown status", manifest.Entry{SectionIndex: 1, Status: "DONE"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.entry.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestWriteEmptyManifestOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	w := manifest.NewWriter(manifest.Manifest{RunID: "r2", Title: "t", CreatedAt: time.Unix(0, 0).UTC()})
	if err := w.Write(path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	loaded, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RunID != "r2" || loaded.Entries == nil || len(loaded.Entries) != 0 {
		t.Fatalf("unexpected manifest %+v", loaded)
	}

	again := manifest.NewWriter(manifest.Manifest{RunID: "r3"})
	if err := again.Write(path); !errors.Is(err, fileutil.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestCounts(t *testing.T) {
	m := manifest.Manifest{Entries: []manifest.Entry{
		{Status: manifest.StatusFailed},
		{Status: manifest.StatusFailed},
		{Status: manifest.StatusSkippedNoMatch},
	}}
	counts := m.Counts()
	if counts[manifest.StatusFailed] != 2 || counts[manifest.StatusSkippedNoMatch] != 1 || counts[manifest.StatusPublished] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
