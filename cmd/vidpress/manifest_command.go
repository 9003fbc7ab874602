package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vidpress/internal/config"
	"vidpress/internal/manifest"
	"vidpress/internal/workspace"
)

func newManifestCommand() *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect run manifests",
	}
	manifestCmd.AddCommand(newManifestShowCommand())
	return manifestCmd
}

func newManifestShowCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "show <manifest.json|run-dir>",
		Short:       "Print the per-section outcomes of a run",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := manifestPath(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, m)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, strategy %s)\n", m.Title, m.RunID, m.Strategy)
			if m.Cancelled {
				fmt.Fprintln(out, "Run was cancelled; sections after the interruption are missing")
			}
			if len(m.Entries) == 0 {
				fmt.Fprintln(out, "No image sections")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Heading", "Status", "Source", "Time", "Detail"},
				manifestRows(m),
				1, 5,
			))
			fmt.Fprintln(out, manifestSummary(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the manifest as JSON")
	return cmd
}

func manifestPath(arg string) (string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("inspect path %q: %w", path, err)
	}
	if info.IsDir() {
		return filepath.Join(path, workspace.ManifestFile), nil
	}
	return path, nil
}

func manifestRows(m manifest.Manifest) [][]string {
	rows := make([][]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		detail := e.Error
		if e.Reference != nil {
			detail = e.Reference.URL
			if e.Reference.Reason != "" {
				detail += " (" + e.Reference.Reason + ")"
			}
		}
		source := e.StrategyUsed
		if e.BestEffort {
			source += " (best effort)"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.SectionIndex),
			truncate(e.Heading, 32),
			string(e.Status),
			source,
			e.Timestamp,
			truncate(detail, 60),
		})
	}
	return rows
}

func manifestSummary(m manifest.Manifest) string {
	counts := m.Counts()
	return fmt.Sprintf("%d published, %d local only, %d skipped, %d failed",
		counts[manifest.StatusPublished],
		counts[manifest.StatusLocalOnly],
		counts[manifest.StatusSkippedNoMatch],
		counts[manifest.StatusFailed],
	)
}
