package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidpress/internal/config"
	"vidpress/internal/history"
	"vidpress/internal/imagegen"
	"vidpress/internal/logging"
	"vidpress/internal/manifest"
	"vidpress/internal/plan"
	"vidpress/internal/publish"
	"vidpress/internal/retry"
	"vidpress/internal/services"
	"vidpress/internal/testsupport"
	"vidpress/internal/workflow"
	"vidpress/internal/workspace"
)

const demoPlan = `{
  "title": "Demo day",
  "lead": "What happened on stage.",
  "sections": [
    {"heading": "Setup", "body": "We installed everything."},
    {"heading": "Demo", "body": "Now watch this part. It is fast.",
     "image": {"need": true, "timestamp": "00:00:10", "caption": "the demo screen", "anchor": "watch this part"}},
    {"heading": "Wrap", "body": "That was all."}
  ],
  "conclusion": "Ship it.",
  "tags": ["demo"]
}`

type stubFrames struct {
	payload []byte
	calls   atomic.Int32
}

func (s *stubFrames) Capture(context.Context, string, float64) ([]byte, error) {
	s.calls.Add(1)
	return s.payload, nil
}

type failingGenerator struct{}

func (failingGenerator) Name() string { return "failing" }

func (failingGenerator) Generate(context.Context, imagegen.Prompt) ([]byte, error) {
	return nil, services.Wrap(services.ErrExternalTool, "generate", "stub", "always fails", nil)
}

type memoryStore struct{}

func (memoryStore) Name() string { return "memory" }

func (memoryStore) Upload(_ context.Context, obj publish.Object) (string, error) {
	return "https://img.example.com/" + obj.Key, nil
}

type cancellingFrames struct {
	cancel context.CancelFunc
}

func (c *cancellingFrames) Capture(ctx context.Context, _ string, _ float64) ([]byte, error) {
	c.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeLLM struct {
	reply string
	calls atomic.Int32
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) CompleteJSON(context.Context, string, string) (string, error) {
	f.calls.Add(1)
	return f.reply, nil
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) }

func newRunner(t *testing.T, cfg *config.Config, store *history.Store, opts ...workflow.Option) *workflow.Runner {
	t.Helper()
	base := []workflow.Option{
		workflow.WithHistory(store),
		workflow.WithClock(fixedNow),
		workflow.WithRetryPolicy(retry.New(2, time.Millisecond, time.Millisecond, retry.WithSleeper(func(time.Duration) {}))),
	}
	runner, err := workflow.NewRunner(cfg, logging.NewNop(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	return runner
}

func writePlan(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestAssembleWritesArtifactsAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyVideoOnly))
	store := testsupport.MustOpenHistory(t, cfg)
	frames := &stubFrames{payload: testsupport.PNG(t, 200, 100)}
	runner := newRunner(t, cfg, store, workflow.WithFrameSource(frames))

	res, err := runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
		Video:    "talk.mp4",
		RunID:    "run-local",
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if res.Status != history.StatusSuccess || res.Counts.LocalOnly != 1 || res.Counts.Total() != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.RunDir != runner.Workspace().RunDir("run-local") {
		t.Fatalf("unexpected run dir %s", res.RunDir)
	}

	article := readFile(t, res.ArticlePath)
	if !strings.Contains(article, "watch this part.\n\n![") || !strings.Contains(article, "file://") {
		t.Fatalf("expected local image after the anchor, got:\n%s", article)
	}
	for _, name := range []string{workspace.ManifestFile, workspace.PlanFile, workspace.HTMLFile, workspace.LogFile} {
		if _, err := os.Stat(filepath.Join(res.RunDir, name)); err != nil {
			t.Fatalf("expected %s in run dir: %v", name, err)
		}
	}
	if !strings.Contains(readFile(t, res.HTMLPath), "<title>Demo day</title>") {
		t.Fatal("expected standalone html export")
	}

	m, err := manifest.Load(res.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 1 || m.Entries[0].Status != manifest.StatusLocalOnly || m.Entries[0].StrategyUsed != "frame" {
		t.Fatalf("unexpected manifest %+v", m.Entries)
	}

	run, err := store.Get(context.Background(), "run-local")
	if err != nil || run == nil {
		t.Fatalf("expected history record, got %v %v", run, err)
	}
	if run.Status != history.StatusSuccess || run.Counts.LocalOnly != 1 || run.ArticlePath != res.ArticlePath {
		t.Fatalf("unexpected history record %+v", run)
	}
	if workspace.Active(res.RunDir) {
		t.Fatal("expected run lock to be released")
	}
}

func TestDefaultConfigKeepsOldLocalImages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyVideoOnly))
	store := testsupport.MustOpenHistory(t, cfg)
	frames := &stubFrames{payload: testsupport.PNG(t, 200, 100)}
	runner := newRunner(t, cfg, store, workflow.WithFrameSource(frames))
	planPath := writePlan(t, t.TempDir(), demoPlan)

	first, err := runner.Assemble(context.Background(), workflow.AssembleRequest{PlanPath: planPath, Video: "talk.mp4", RunID: "old-run"})
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, -6, 0)
	if err := os.Chtimes(first.RunDir, old, old); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Assemble(context.Background(), workflow.AssembleRequest{PlanPath: planPath, Video: "talk.mp4", RunID: "new-run"}); err != nil {
		t.Fatal(err)
	}

	article := readFile(t, first.ArticlePath)
	start := strings.Index(article, "file://")
	if start < 0 {
		t.Fatalf("expected a local image in the old article:\n%s", article)
	}
	local := strings.TrimPrefix(article[start:start+strings.IndexByte(article[start:], ')')], "file://")
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("old article's local image should survive a later run: %v", err)
	}
}

func TestAssemblePublishesThroughStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyVideoOnly))
	runner := newRunner(t, cfg, nil,
		workflow.WithFrameSource(&stubFrames{payload: testsupport.PNG(t, 32, 18)}),
		workflow.WithStore(memoryStore{}),
	)

	res, err := runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
		Video:    "/videos/Demo Day.mp4",
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if res.Counts.Published != 1 {
		t.Fatalf("expected one published image, got %+v", res.Counts)
	}
	want := "https://img.example.com/" + cfg.Publish.Prefix + "/202603/07/demo-day/"
	if !strings.Contains(readFile(t, res.ArticlePath), want) {
		t.Fatalf("expected object key under %s", want)
	}
}

func TestAssembleRejectsInvalidPlanBeforeSideEffects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	runner := newRunner(t, cfg, store)

	_, err := runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), `{"title": "", "sections": []}`),
	})
	var invalid *plan.InvalidPlanError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPlanError, got %v", err)
	}
	if _, statErr := os.Stat(runner.Workspace().RunsDir()); !os.IsNotExist(statErr) {
		t.Fatalf("expected no run directory, stat returned %v", statErr)
	}
	runs, err := store.List(context.Background(), 0)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs (%v)", len(runs), err)
	}
}

func TestAssembleRejectsUnknownStrategy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, cfg, nil)
	_, err := runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
		Strategy: "sometimes",
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAIOnlyFailingGeneratorStillProducesArticle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyAIOnly))
	store := testsupport.MustOpenHistory(t, cfg)
	runner := newRunner(t, cfg, store, workflow.WithGenerator(failingGenerator{}))

	res, err := runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if res.Counts.Failed != 1 || res.Status != history.StatusSuccess {
		t.Fatalf("unexpected result %+v", res)
	}
	article := readFile(t, res.ArticlePath)
	if strings.Contains(article, "![") || !strings.Contains(article, "Now watch this part.") {
		t.Fatalf("expected text without image, got:\n%s", article)
	}
}

func TestCancelledRunIsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyVideoOnly))
	store := testsupport.MustOpenHistory(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := newRunner(t, cfg, store, workflow.WithFrameSource(&cancellingFrames{cancel: cancel}))

	res, err := runner.Assemble(ctx, workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
		Video:    "talk.mp4",
		RunID:    "run-cancel",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !res.Cancelled || res.Status != history.StatusCancelled {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(readFile(t, res.ArticlePath), "Now watch this part.") {
		t.Fatal("expected partial article text to be written")
	}
	m, err := manifest.Load(res.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Cancelled || len(m.Entries) != 0 {
		t.Fatalf("expected cancelled manifest without entries, got %+v", m)
	}
	run, err := store.Get(context.Background(), "run-cancel")
	if err != nil || run == nil || run.Status != history.StatusCancelled {
		t.Fatalf("expected cancelled history record, got %+v %v", run, err)
	}
}

func TestAssembleRefusesLockedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, cfg, nil)
	held, err := runner.Workspace().Create("busy")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	_, err = runner.Assemble(context.Background(), workflow.AssembleRequest{
		PlanPath: writePlan(t, t.TempDir(), demoPlan),
		RunID:    "busy",
	})
	if !errors.Is(err, workspace.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
}

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.srt")
	body := "1\n00:00:01,000 --> 00:00:04,000\nWelcome to demo day.\n\n2\n00:00:10,000 --> 00:00:12,000\nNow watch this part.\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlanWritesDecodedPlan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	llm := &fakeLLM{reply: "```json\n" + demoPlan + "\n```"}
	runner := newRunner(t, cfg, nil, workflow.WithPlanClient(llm))

	out := filepath.Join(t.TempDir(), "out.json")
	result, err := runner.Plan(context.Background(), workflow.PlanRequest{
		TranscriptPath: writeTranscript(t),
		Instruction:    "Write a recap",
		Out:            out,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if result.Plan["title"] != "Demo day" || llm.calls.Load() != 1 {
		t.Fatalf("unexpected plan result %+v", result)
	}
	raw, err := plan.Parse([]byte(readFile(t, out)), plan.FormatJSON)
	if err != nil || raw["title"] != "Demo day" {
		t.Fatalf("expected written plan, got %v %v", raw, err)
	}
}

func TestPlanRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	runner := newRunner(t, cfg, nil)
	_, err := runner.Plan(context.Background(), workflow.PlanRequest{TranscriptPath: writeTranscript(t)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunPlansAndAssembles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrategy(config.StrategyHybrid))
	store := testsupport.MustOpenHistory(t, cfg)
	runner := newRunner(t, cfg, store,
		workflow.WithPlanClient(&fakeLLM{reply: demoPlan}),
		workflow.WithFrameSource(&stubFrames{payload: testsupport.PNG(t, 64, 36)}),
		workflow.WithGenerator(nil),
	)

	transcriptPath := writeTranscript(t)
	res, err := runner.Run(context.Background(), workflow.RunRequest{
		TranscriptPath: transcriptPath,
		Instruction:    "Write a recap",
		Video:          "talk.mp4",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Title != "Demo day" || res.Counts.LocalOnly != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if readFile(t, filepath.Join(res.RunDir, "transcript.srt")) != readFile(t, transcriptPath) {
		t.Fatal("expected the transcript copied into the run directory")
	}
	runs, err := store.List(context.Background(), 0)
	if err != nil || len(runs) != 1 || runs[0].Status != history.StatusSuccess {
		t.Fatalf("unexpected history %+v %v", runs, err)
	}
}
