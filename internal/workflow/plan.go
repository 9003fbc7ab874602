package workflow

import (
	"context"
	"path/filepath"
	"strings"

	"vidpress/internal/fileutil"
	"vidpress/internal/logging"
	"vidpress/internal/services"
	"vidpress/internal/textutil"
	"vidpress/internal/transcript"
	"vidpress/internal/workspace"
	"vidpress/internal/writer"
)

// PlanRequest asks the LLM for an article plan.
type PlanRequest struct {
	TranscriptPath string
	Instruction    string
	// TargetWords overrides llm.target_words when positive.
	TargetWords int
	// Out receives the decoded plan as JSON when set. The file must not exist.
	Out string
}

// Plan loads the transcript and requests a plan. The plan is decoded but
// not validated; Assemble validates it.
func (r *Runner) Plan(ctx context.Context, req PlanRequest) (writer.Result, error) {
	segments, err := transcript.Load(req.TranscriptPath)
	if err != nil {
		return writer.Result{}, services.Wrap(services.ErrValidation, "workflow", "load transcript", req.TranscriptPath, err)
	}
	client, err := r.llmClient(ctx)
	if err != nil {
		return writer.Result{}, err
	}
	target := req.TargetWords
	if target <= 0 {
		target = r.cfg.LLM.TargetWords
	}

	w := writer.New(client, r.policy, r.logger)
	result, err := w.Plan(ctx, writer.Request{
		Transcript:  transcript.Render(segments),
		Instruction: req.Instruction,
		TargetWords: target,
		MaxImages:   r.cfg.Assembly.MaxImages,
	})
	if err != nil {
		return result, err
	}
	if out := strings.TrimSpace(req.Out); out != "" {
		if err := fileutil.WriteJSONOnce(out, result.Plan); err != nil {
			return result, artifactError("plan", err)
		}
	}
	return result, nil
}

func (r *Runner) llmClient(ctx context.Context) (writer.Client, error) {
	if r.planClient != nil {
		return r.planClient, nil
	}
	if strings.TrimSpace(r.cfg.LLM.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "llm", "llm.api_key is not set", nil)
	}
	return writer.NewClient(ctx, r.cfg.LLM)
}

// RunRequest is a plan request followed by assembly.
type RunRequest struct {
	TranscriptPath string
	Instruction    string
	TargetWords    int
	Video          string
	Strategy       string
	SourceID       string
}

// Run requests a plan from the transcript and assembles it. The transcript
// is copied into the run directory next to the other artifacts.
func (r *Runner) Run(ctx context.Context, req RunRequest) (Result, error) {
	planned, err := r.Plan(ctx, PlanRequest{
		TranscriptPath: req.TranscriptPath,
		Instruction:    req.Instruction,
		TargetWords:    req.TargetWords,
	})
	if err != nil {
		return Result{}, err
	}

	sourceID := req.SourceID
	if strings.TrimSpace(sourceID) == "" && strings.TrimSpace(req.Video) == "" {
		sourceID = textutil.SourceID(req.TranscriptPath)
	}
	res, err := r.Assemble(ctx, AssembleRequest{
		Plan:     planned.Plan,
		Video:    req.Video,
		Strategy: req.Strategy,
		SourceID: sourceID,
		RunID:    workspace.NewRunID(),
	})
	if res.RunDir != "" {
		dst := filepath.Join(res.RunDir, "transcript"+filepath.Ext(req.TranscriptPath))
		digest, copyErr := fileutil.CopyOnce(req.TranscriptPath, dst)
		if copyErr != nil {
			logging.WarnWithContext(r.logger, "transcript copy failed", "transcript_copy_failed",
				logging.String(logging.FieldRunID, res.RunID),
				logging.Error(copyErr),
				logging.String(logging.FieldImpact, "run directory lacks the source transcript"),
			)
		} else {
			r.logger.Debug("transcript copied", logging.String("path", dst), logging.String("sha256", digest))
		}
	}
	return res, err
}
