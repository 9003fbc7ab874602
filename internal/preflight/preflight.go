package preflight

import (
	"context"

	"vidpress/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg. The plan LLM is only
// checked when includeLLM is set, since that check spends a request.
func RunAll(ctx context.Context, cfg *config.Config, includeLLM bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if cfg.Assembly.Strategy != config.StrategyVideoOnly {
		results = append(results, CheckGeneration(ctx, cfg.Generation))
	}
	results = append(results, CheckPublish(ctx, cfg.Publish))

	if includeLLM {
		results = append(results, CheckLLM(ctx, "Plan LLM", cfg.LLM))
	}
	return results
}

// Failed filters results down to the failures.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
