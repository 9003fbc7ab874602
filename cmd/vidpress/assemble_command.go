package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidpress/internal/config"
	"vidpress/internal/workflow"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var req workflow.AssembleRequest
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble an article plan into a run directory",
		Long: "Assemble validates the plan, acquires an image for every section that asks for one,\n" +
			"publishes the images and writes article.md, manifest.json, plan.json and article.html\n" +
			"into a new run directory under the workspace.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.PlanPath) == "" {
				return fmt.Errorf("--plan is required")
			}
			if err := expandFlagPaths(&req.PlanPath, &req.Video); err != nil {
				return err
			}
			return ctx.withRunner(func(runner *workflow.Runner) error {
				res, err := runner.Assemble(cmd.Context(), req)
				return reportResult(cmd, res, err, jsonOut)
			})
		},
	}

	cmd.Flags().StringVarP(&req.PlanPath, "plan", "p", "", "Article plan file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&req.Video, "video", "", "Source video for frame capture")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Override assembly.strategy (video_only, hybrid, ai_only)")
	cmd.Flags().StringVar(&req.SourceID, "source-id", "", "Object key segment for published images")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run result as JSON")
	return cmd
}

// reportResult prints whatever the run produced, then returns its error.
// A cancelled run still has artifacts worth pointing at.
func reportResult(cmd *cobra.Command, res workflow.Result, runErr error, jsonOut bool) error {
	if res.RunID == "" {
		return runErr
	}
	if jsonOut {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
		return runErr
	}
	printResult(cmd.OutOrStdout(), res)
	return runErr
}

func printResult(out io.Writer, res workflow.Result) {
	fmt.Fprintf(out, "Run %s: %s\n", res.RunID, res.Status)
	fmt.Fprintf(out, "  Title:     %s\n", res.Title)
	fmt.Fprintf(out, "  Strategy:  %s\n", res.Strategy)
	fmt.Fprintf(out, "  Images:    %d published, %d local only, %d skipped, %d failed\n",
		res.Counts.Published, res.Counts.LocalOnly, res.Counts.Skipped, res.Counts.Failed)
	if res.Cancelled {
		fmt.Fprintln(out, "  Cancelled: yes (partial article)")
	}
	fmt.Fprintf(out, "  Elapsed:   %s\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  Article:   %s\n", res.ArticlePath)
	fmt.Fprintf(out, "  Manifest:  %s\n", res.ManifestPath)
	if res.HTMLPath != "" {
		fmt.Fprintf(out, "  HTML:      %s\n", res.HTMLPath)
	}
}

func expandFlagPaths(paths ...*string) error {
	for _, p := range paths {
		value := strings.TrimSpace(*p)
		if value == "" {
			continue
		}
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("resolve path %q: %w", value, err)
		}
		*p = expanded
	}
	return nil
}
