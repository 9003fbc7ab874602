// Package manifest records how every image-bearing section of a run ended.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vidpress/internal/acquire"
	"vidpress/internal/fileutil"
)

// Status is the terminal outcome of a needed section.
type Status string

const (
	StatusPublished      Status = "PUBLISHED"
	StatusLocalOnly      Status = "LOCAL_ONLY"
	StatusSkippedNoMatch Status = "SKIPPED_NO_MATCH"
	StatusFailed         Status = "FAILED"
)

// HasReference reports whether entries with this status carry a Reference.
func (s Status) HasReference() bool {
	return s == StatusPublished || s == StatusLocalOnly
}

// Reference is the published location of an image.
type Reference struct {
	URL       string `json:"url"`
	Remote    bool   `json:"remote"`
	Key       string `json:"key,omitempty"`
	LocalPath string `json:"local_path"`
	// Reason explains why a LOCAL_ONLY image was not uploaded.
	Reason string `json:"reason,omitempty"`
}

// Entry traces one needed section.
type Entry struct {
	SectionIndex int               `json:"section_index"`
	Heading      string            `json:"heading"`
	Anchor       string            `json:"anchor"`
	Timestamp    string            `json:"timestamp,omitempty"`
	Seconds      *float64          `json:"seconds,omitempty"`
	StrategyUsed string            `json:"strategy_used,omitempty"`
	Status       Status            `json:"status"`
	Reference    *Reference        `json:"reference,omitempty"`
	Caption      string            `json:"caption,omitempty"`
	AltText      string            `json:"alt_text,omitempty"`
	Error        string            `json:"error,omitempty"`
	Attempts     []acquire.Attempt `json:"attempts,omitempty"`
	BestEffort   bool              `json:"best_effort,omitempty"`
	ByteSize     int64             `json:"byte_size,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
}

// Validate checks the reference invariant.
func (e Entry) Validate() error {
	switch e.Status {
	case StatusPublished, StatusLocalOnly, StatusSkippedNoMatch, StatusFailed:
	default:
		return fmt.Errorf("manifest: section %d: unknown status %q", e.SectionIndex, e.Status)
	}
	if e.Status.HasReference() != (e.Reference != nil) {
		return fmt.Errorf("manifest: section %d: %s entry reference mismatch", e.SectionIndex, e.Status)
	}
	if e.Status == StatusPublished && !e.Reference.Remote {
		return fmt.Errorf("manifest: section %d: published entry has a local reference", e.SectionIndex)
	}
	return nil
}

// Manifest is the per-run record.
type Manifest struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Strategy    string    `json:"strategy"`
	SourceVideo string    `json:"source_video,omitempty"`
	Cancelled   bool      `json:"cancelled,omitempty"`
	Entries     []Entry   `json:"entries"`
}

// Counts tallies entries by status.
func (m Manifest) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, e := range m.Entries {
		counts[e.Status]++
	}
	return counts
}

// Writer collects entries in document order and writes the file once.
type Writer struct {
	manifest Manifest
	last     int
	written  bool
}

// NewWriter starts a manifest with the run metadata in header.
func NewWriter(header Manifest) *Writer {
	header.Entries = make([]Entry, 0)
	return &Writer{manifest: header}
}

// Append adds entry. Entries must arrive in increasing section order.
func (w *Writer) Append(entry Entry) error {
	if w.written {
		return fmt.Errorf("manifest: append after write")
	}
	if entry.SectionIndex <= w.last {
		return fmt.Errorf("manifest: section %d appended after section %d", entry.SectionIndex, w.last)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	w.manifest.Entries = append(w.manifest.Entries, entry)
	w.last = entry.SectionIndex
	return nil
}

// MarkCancelled flags the run as cancelled.
func (w *Writer) MarkCancelled() { w.manifest.Cancelled = true }

// Manifest returns a copy of the collected manifest.
func (w *Writer) Manifest() Manifest {
	out := w.manifest
	out.Entries = append([]Entry(nil), w.manifest.Entries...)
	return out
}

// Write creates path exclusively, even when the manifest has no entries.
func (w *Writer) Write(path string) error {
	if w.written {
		return fmt.Errorf("manifest: already written")
	}
	if err := fileutil.WriteJSONOnce(path, w.manifest); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	w.written = true
	return nil
}

// Load reads a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	return m, nil
}
