package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/patrickmn/go-cache"

	"vidpress/internal/config"
	"vidpress/internal/imagegen"
	"vidpress/internal/imaging"
	"vidpress/internal/logging"
	"vidpress/internal/media/frames"
	"vidpress/internal/plan"
	"vidpress/internal/retry"
	"vidpress/internal/services"
)

// Path names one acquisition method.
type Path string

const (
	PathFrame     Path = "frame"
	PathSynthetic Path = "synthetic"
)

// Paths expands a strategy into its ordered path list.
func Paths(strategy string) ([]Path, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case config.StrategyVideoOnly:
		return []Path{PathFrame}, nil
	case config.StrategyHybrid:
		return []Path{PathFrame, PathSynthetic}, nil
	case config.StrategyAIOnly:
		return []Path{PathSynthetic}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "acquire", "strategy", strategy, nil)
	}
}

// FrameSource captures a still from a video.
type FrameSource interface {
	Capture(ctx context.Context, video string, seconds float64) ([]byte, error)
}

// Request describes the image wanted for one section.
type Request struct {
	Section   int
	Video     string
	Timestamp plan.Timestamp
	Prompt    imagegen.Prompt
}

// Attempt records one path tried for a section.
type Attempt struct {
	Path  Path   `json:"path"`
	Tries int    `json:"tries"`
	Error string `json:"error,omitempty"`

	Err     error  `json:"-"`
	Payload []byte `json:"-"`
}

// Succeeded reports whether the attempt produced a payload.
func (a Attempt) Succeeded() bool { return a.Err == nil && len(a.Payload) > 0 }

// Result is a successful acquisition.
type Result struct {
	StrategyUsed Path
	Payload      []byte
	Attempts     []Attempt
}

// AcquisitionError reports that every path of the strategy failed.
type AcquisitionError struct {
	Section  int
	Attempts []Attempt
}

func (e *AcquisitionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Path, a.Err))
	}
	return fmt.Sprintf("acquire section %d: all paths failed: %s", e.Section, strings.Join(parts, "; "))
}

// Unwrap exposes the last attempt's error.
func (e *AcquisitionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Options configures an Acquirer. Frames or Generator may be nil when the
// run has no source video or no generation provider; paths that need them
// then fail structurally.
type Options struct {
	Strategy  string
	Frames    FrameSource
	Generator imagegen.Generator
	Policy    *retry.Policy
	Logger    *slog.Logger
}

// Acquirer is safe for concurrent use by the section workers of one run.
type Acquirer struct {
	paths     []Path
	frames    FrameSource
	generator imagegen.Generator
	policy    *retry.Policy
	logger    *slog.Logger
	frameMemo *cache.Cache
}

// New validates the strategy and builds an Acquirer with an empty frame cache.
func New(opts Options) (*Acquirer, error) {
	paths, err := Paths(opts.Strategy)
	if err != nil {
		return nil, err
	}
	policy := opts.Policy
	if policy == nil {
		policy = retry.Default()
	}
	return &Acquirer{
		paths:     paths,
		frames:    opts.Frames,
		generator: opts.Generator,
		policy:    policy,
		logger:    logging.NewComponentLogger(opts.Logger, "acquire"),
		frameMemo: cache.New(cache.NoExpiration, 0),
	}, nil
}

// Acquire walks the path list until one path yields a decodable image.
// Cancellation stops the walk and returns the context error.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, a.logger)
	attempts := make([]Attempt, 0, len(a.paths))
	for i, path := range a.paths {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}
		attempt := a.try(ctx, path, req)
		attempts = append(attempts, attempt)
		if attempt.Succeeded() {
			logger.Debug("image acquired",
				logging.String("path", string(path)),
				logging.Int("tries", attempt.Tries),
				logging.Int("bytes", len(attempt.Payload)),
			)
			return Result{StrategyUsed: path, Payload: attempt.Payload, Attempts: attempts}, nil
		}
		if ctx.Err() != nil {
			return Result{Attempts: attempts}, ctx.Err()
		}
		if i+1 < len(a.paths) {
			logging.WarnWithContext(logger, "acquisition path failed; falling back",
				"acquire_fallback",
				logging.String("path", string(path)),
				logging.String("next_path", string(a.paths[i+1])),
				logging.Error(attempt.Err),
				logging.String(logging.FieldErrorHint, "check the timestamp and source video"),
				logging.String(logging.FieldImpact, "section image will be synthetic"),
			)
		}
	}
	return Result{Attempts: attempts}, &AcquisitionError{Section: req.Section, Attempts: attempts}
}

func (a *Acquirer) try(ctx context.Context, path Path, req Request) Attempt {
	attempt := Attempt{Path: path}
	var fetch func(context.Context) ([]byte, error)
	switch path {
	case PathFrame:
		if a.frames == nil {
			return failed(attempt, services.Wrap(services.ErrValidation, "acquire", "frame", "no source video", frames.ErrNoVideo))
		}
		if !req.Timestamp.Valid {
			msg := fmt.Sprintf("unusable timestamp %q", req.Timestamp.Raw)
			return failed(attempt, services.Wrap(services.ErrValidation, "acquire", "frame", msg, frames.ErrInvalidTimestamp))
		}
		fetch = func(ctx context.Context) ([]byte, error) {
			return a.captureFrame(ctx, req.Video, req.Timestamp.Seconds)
		}
	case PathSynthetic:
		if a.generator == nil {
			return failed(attempt, services.Wrap(services.ErrConfiguration, "acquire", "synthetic", "", imagegen.ErrNotConfigured))
		}
		fetch = func(ctx context.Context) ([]byte, error) {
			return a.generator.Generate(ctx, req.Prompt)
		}
	default:
		return failed(attempt, fmt.Errorf("acquire: unknown path %q", path))
	}

	payload, tries, err := retry.Value(ctx, a.policy, "acquire "+string(path), func(ctx context.Context) ([]byte, error) {
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if _, _, _, err := imaging.Probe(data); err != nil {
			return nil, services.Wrap(services.ErrValidation, "acquire", string(path), "payload is not an image", err)
		}
		return data, nil
	})
	attempt.Tries = tries
	if err != nil {
		return failed(attempt, err)
	}
	attempt.Payload = payload
	return attempt
}

func failed(a Attempt, err error) Attempt {
	a.Err = err
	a.Error = err.Error()
	return a
}

func (a *Acquirer) captureFrame(ctx context.Context, video string, seconds float64) ([]byte, error) {
	key := fmt.Sprintf("%s|%d", video, int64(math.Round(seconds*1000)))
	if cached, ok := a.frameMemo.Get(key); ok {
		return cached.([]byte), nil
	}
	data, err := a.frames.Capture(ctx, video, seconds)
	if err != nil {
		return nil, err
	}
	a.frameMemo.Set(key, data, cache.NoExpiration)
	return data, nil
}

// IsAcquisitionError reports whether err is an AcquisitionError.
func IsAcquisitionError(err error) bool {
	var target *AcquisitionError
	return errors.As(err, &target)
}
