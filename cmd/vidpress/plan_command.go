package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidpress/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var req workflow.PlanRequest

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Request an article plan for a transcript",
		Long: "Plan sends the transcript to the configured LLM and prints the decoded plan as JSON.\n" +
			"With --out the plan is written to a new file instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.TranscriptPath) == "" {
				return fmt.Errorf("--transcript is required")
			}
			if err := expandFlagPaths(&req.TranscriptPath, &req.Out); err != nil {
				return err
			}
			return ctx.withRunner(func(runner *workflow.Runner) error {
				res, err := runner.Plan(cmd.Context(), req)
				if err != nil {
					return err
				}
				if req.Out != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote plan to %s (%d attempt(s))\n", req.Out, res.Tries)
					return nil
				}
				return writeJSON(cmd, res.Plan)
			})
		},
	}

	cmd.Flags().StringVarP(&req.TranscriptPath, "transcript", "t", "", "Timestamped transcript (.srt, .vtt or .json)")
	cmd.Flags().StringVar(&req.Instruction, "prompt", "", "Extra instruction for the writer")
	cmd.Flags().IntVar(&req.TargetWords, "words", 0, "Override llm.target_words")
	cmd.Flags().StringVarP(&req.Out, "out", "o", "", "Write the plan to this file")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var req workflow.RunRequest
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and assemble an article in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.TranscriptPath) == "" {
				return fmt.Errorf("--transcript is required")
			}
			if err := expandFlagPaths(&req.TranscriptPath, &req.Video); err != nil {
				return err
			}
			return ctx.withRunner(func(runner *workflow.Runner) error {
				res, err := runner.Run(cmd.Context(), req)
				return reportResult(cmd, res, err, jsonOut)
			})
		},
	}

	cmd.Flags().StringVarP(&req.TranscriptPath, "transcript", "t", "", "Timestamped transcript (.srt, .vtt or .json)")
	cmd.Flags().StringVar(&req.Video, "video", "", "Source video for frame capture")
	cmd.Flags().StringVar(&req.Instruction, "prompt", "", "Extra instruction for the writer")
	cmd.Flags().IntVar(&req.TargetWords, "words", 0, "Override llm.target_words")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Override assembly.strategy (video_only, hybrid, ai_only)")
	cmd.Flags().StringVar(&req.SourceID, "source-id", "", "Object key segment for published images")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run result as JSON")
	return cmd
}
