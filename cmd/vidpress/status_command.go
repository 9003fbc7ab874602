package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidpress/internal/config"
	"vidpress/internal/deps"
	"vidpress/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printLines := func(lines []string) {
				for _, line := range lines {
					fmt.Fprintln(stdout, line)
				}
			}

			printLines(renderSectionHeader("Configuration", colorize))
			printLines(configLines(ctx, cfg, colorize))
			fmt.Fprintln(stdout)

			statuses := preflight.CheckSystemDeps(cfg)
			printLines(renderSectionHeader("Dependencies", colorize))
			printLines(dependencyLines(cmd.Context(), statuses, colorize))
			fmt.Fprintln(stdout)

			results := preflight.RunAll(cmd.Context(), cfg, checkLLM)
			printLines(renderSectionHeader("Checks", colorize))
			for _, r := range results {
				fmt.Fprintln(stdout, resultLine(r).render(colorize))
			}
			if !checkLLM {
				fmt.Fprintln(stdout, renderStatusLine("Plan LLM", statusInfo, "Not checked (use --check-llm)", colorize))
			}

			failed := len(preflight.Failed(results)) + len(deps.MissingRequired(statuses))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Also send one request to the plan LLM")
	return cmd
}

func configLines(ctx *commandContext, cfg *config.Config, colorize bool) []string {
	source := ctx.configFile
	if !ctx.configExists {
		source += " (not found, defaults in use)"
	}
	generation := cfg.Generation.Provider
	if cfg.Assembly.Strategy == config.StrategyVideoOnly {
		generation += " (unused by video_only)"
	}
	return []string{
		renderStatusLine("Config file", statusInfo, source, colorize),
		renderStatusLine("Strategy", statusInfo, cfg.Assembly.Strategy, colorize),
		renderStatusLine("Image generation", statusInfo, generation, colorize),
		renderStatusLine("Publish backend", statusInfo, cfg.Publish.Backend, colorize),
		renderStatusLine("Plan LLM", statusInfo, fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model), colorize),
		renderStatusLine("HTML export", statusInfo, yesNo(cfg.Render.HTML), colorize),
	}
}

func dependencyLines(ctx context.Context, statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	for _, s := range statuses {
		banner := ""
		if s.Available {
			banner = deps.Version(ctx, s.Path)
		}
		lines = append(lines, depLine(s, banner).render(colorize))
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}
