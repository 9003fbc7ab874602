package acquire_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vidpress/internal/acquire"
	"vidpress/internal/config"
	"vidpress/internal/imagegen"
	"vidpress/internal/media/frames"
	"vidpress/internal/plan"
	"vidpress/internal/retry"
	"vidpress/internal/services"
	"vidpress/internal/testsupport"
)

type fakeFrames struct {
	calls   atomic.Int32
	payload []byte
	errs    []error
}

func (f *fakeFrames) Capture(context.Context, string, float64) ([]byte, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	return f.payload, nil
}

type fakeGenerator struct {
	calls   atomic.Int32
	payload []byte
	err     error
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(context.Context, imagegen.Prompt) ([]byte, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.payload, nil
}

func noSleepPolicy() *retry.Policy {
	return retry.New(2, time.Millisecond, time.Millisecond, retry.WithSleeper(func(time.Duration) {}))
}

func newAcquirer(t *testing.T, strategy string, f acquire.FrameSource, g imagegen.Generator) *acquire.Acquirer {
	t.Helper()
	opts := acquire.Options{Strategy: strategy, Policy: noSleepPolicy()}
	if f != nil {
		opts.Frames = f
	}
	if g != nil {
		opts.Generator = g
	}
	a, err := acquire.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return a
}

func request(ts string) acquire.Request {
	return acquire.Request{
		Section:   2,
		Video:     "talk.mp4",
		Timestamp: plan.ParseTimestamp(ts),
		Prompt:    imagegen.Prompt{Text: "demo"},
	}
}

func structural() error {
	return services.Wrap(services.ErrValidation, "capture", "frame", "", frames.ErrInvalidTimestamp)
}

func TestPathsPerStrategy(t *testing.T) {
	tests := map[string][]acquire.Path{
		config.StrategyVideoOnly: {acquire.PathFrame},
		config.StrategyHybrid:    {acquire.PathFrame, acquire.PathSynthetic},
		config.StrategyAIOnly:    {acquire.PathSynthetic},
	}
	for strategy, want := range tests {
		got, err := acquire.Paths(strategy)
		if err != nil {
			t.Fatalf("%s: %v", strategy, err)
		}
		if len(got) != len(want) {
			t.Fatalf("%s: got %v want %v", strategy, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: got %v want %v", strategy, got, want)
			}
		}
	}
	if _, err := acquire.Paths("frames_then_magic"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHybridFallsBackOnceAfterStructuralFrameFailure(t *testing.T) {
	png := testsupport.PNG(t, 8, 8)
	f := &fakeFrames{errs: []error{structural()}}
	g := &fakeGenerator{payload: png}
	a := newAcquirer(t, config.StrategyHybrid, f, g)

	res, err := a.Acquire(context.Background(), request("00:10"))
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if res.StrategyUsed != acquire.PathSynthetic {
		t.Fatalf("expected synthetic, got %s", res.StrategyUsed)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("structural failure must not be retried, got %d captures", f.calls.Load())
	}
	if g.calls.Load() != 1 {
		t.Fatalf("expected exactly one generation, got %d", g.calls.Load())
	}
	if len(res.Attempts) != 2 || res.Attempts[0].Err == nil || res.Attempts[1].Err != nil {
		t.Fatalf("unexpected attempts %+v", res.Attempts)
	}
}

func TestHybridFallsBackOnMissingTimestamp(t *testing.T) {
	f := &fakeFrames{payload: testsupport.PNG(t, 4, 4)}
	g := &fakeGenerator{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyHybrid, f, g)

	res, err := a.Acquire(context.Background(), request("around the middle"))
	if err != nil {
		t.Fatal(err)
	}
	if res.StrategyUsed != acquire.PathSynthetic || f.calls.Load() != 0 {
		t.Fatalf("expected synthetic without capture, got %s after %d captures", res.StrategyUsed, f.calls.Load())
	}
	if !errors.Is(res.Attempts[0].Err, frames.ErrInvalidTimestamp) {
		t.Fatalf("expected invalid timestamp attempt, got %v", res.Attempts[0].Err)
	}
}

func TestHybridFallsBackOnUndecodableFrame(t *testing.T) {
	f := &fakeFrames{payload: []byte("not an image at all")}
	g := &fakeGenerator{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyHybrid, f, g)

	res, err := a.Acquire(context.Background(), request("5"))
	if err != nil {
		t.Fatal(err)
	}
	if res.StrategyUsed != acquire.PathSynthetic {
		t.Fatalf("expected synthetic, got %s", res.StrategyUsed)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("undecodable frame is structural, got %d captures", f.calls.Load())
	}
}

func TestVideoOnlyNeverReportsSynthetic(t *testing.T) {
	f := &fakeFrames{errs: []error{structural()}}
	g := &fakeGenerator{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyVideoOnly, f, g)

	res, err := a.Acquire(context.Background(), request("00:10"))
	var acqErr *acquire.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
	if res.StrategyUsed == acquire.PathSynthetic || g.calls.Load() != 0 {
		t.Fatal("video_only must not generate")
	}
	if acqErr.Section != 2 || len(acqErr.Attempts) != 1 {
		t.Fatalf("unexpected error detail %+v", acqErr)
	}
	if !errors.Is(err, frames.ErrInvalidTimestamp) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestAIOnlyNeverCaptures(t *testing.T) {
	f := &fakeFrames{payload: testsupport.PNG(t, 4, 4)}
	g := &fakeGenerator{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyAIOnly, f, g)

	res, err := a.Acquire(context.Background(), request("00:10"))
	if err != nil {
		t.Fatal(err)
	}
	if res.StrategyUsed != acquire.PathSynthetic || f.calls.Load() != 0 {
		t.Fatalf("ai_only captured %d frames", f.calls.Load())
	}
}

func TestTransientFailuresRetryAtMostTwice(t *testing.T) {
	timeout := services.Wrap(services.ErrTimeout, "capture", "ffmpeg", "", nil)
	f := &fakeFrames{errs: []error{timeout, timeout, timeout, timeout}}
	a := newAcquirer(t, config.StrategyVideoOnly, f, nil)

	_, err := a.Acquire(context.Background(), request("00:10"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if f.calls.Load() != 3 {
		t.Fatalf("expected 3 tries (1 + 2 retries), got %d", f.calls.Load())
	}
	var acqErr *acquire.AcquisitionError
	if !errors.As(err, &acqErr) || acqErr.Attempts[0].Tries != 3 {
		t.Fatalf("unexpected attempts %+v", acqErr)
	}
}

func TestTransientFailureRecovers(t *testing.T) {
	limited := services.Wrap(services.ErrRateLimited, "generate", "gemini", "", nil)
	g := &fakeGenerator{payload: testsupport.PNG(t, 4, 4)}
	flaky := &flakyGenerator{next: g, failures: 1, err: limited}
	a := newAcquirer(t, config.StrategyAIOnly, nil, flaky)

	res, err := a.Acquire(context.Background(), request(""))
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts[0].Tries != 2 {
		t.Fatalf("expected 2 tries, got %d", res.Attempts[0].Tries)
	}
}

type flakyGenerator struct {
	next     imagegen.Generator
	failures int32
	calls    atomic.Int32
	err      error
}

func (f *flakyGenerator) Name() string { return "flaky" }

func (f *flakyGenerator) Generate(ctx context.Context, p imagegen.Prompt) ([]byte, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, f.err
	}
	return f.next.Generate(ctx, p)
}

func TestAIOnlyWithoutGeneratorFails(t *testing.T) {
	a := newAcquirer(t, config.StrategyAIOnly, nil, nil)
	_, err := a.Acquire(context.Background(), request(""))
	if !errors.Is(err, imagegen.ErrNotConfigured) {
		t.Fatalf("expected not-configured cause, got %v", err)
	}
}

func TestFrameCacheReusesCapture(t *testing.T) {
	f := &fakeFrames{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyVideoOnly, f, nil)
	for i := 0; i < 2; i++ {
		if _, err := a.Acquire(context.Background(), request("00:01:02.5")); err != nil {
			t.Fatal(err)
		}
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected one capture for the same timestamp, got %d", f.calls.Load())
	}
}

func TestAcquireStopsOnCancellation(t *testing.T) {
	f := &fakeFrames{payload: testsupport.PNG(t, 4, 4)}
	a := newAcquirer(t, config.StrategyHybrid, f, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Acquire(ctx, request("00:10"))
	if !errors.Is(err, context.Canceled) || acquire.IsAcquisitionError(err) {
		t.Fatalf("expected bare cancellation, got %v", err)
	}
}
