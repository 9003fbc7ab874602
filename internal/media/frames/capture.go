package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vidpress/internal/logging"
	"vidpress/internal/media/ffprobe"
	"vidpress/internal/services"
)

var (
	// ErrInvalidTimestamp marks timestamps that cannot address a frame.
	ErrInvalidTimestamp = errors.New("timestamp outside video")
	// ErrNoVideo marks a capture without a usable source video.
	ErrNoVideo = errors.New("no source video")
	// ErrEmptyFrame marks ffmpeg runs that produced no image.
	ErrEmptyFrame = errors.New("empty frame")
)

// Options configures a Capturer.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Timeout bounds one ffmpeg invocation.
	Timeout time.Duration
	// WorkDir receives the captured frame files.
	WorkDir string
	Logger  *slog.Logger
}

// Capturer extracts frames for a single run.
type Capturer struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	workDir string
	logger  *slog.Logger
	seq     atomic.Int64

	mu        sync.Mutex
	durations map[string]probeResult
}

type probeResult struct {
	seconds float64
	err     error
}

// NewCapturer builds a Capturer; empty binaries default to ffmpeg/ffprobe.
func NewCapturer(opts Options) *Capturer {
	ffmpegBin := strings.TrimSpace(opts.FFmpegBinary)
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := strings.TrimSpace(opts.FFprobeBinary)
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Capturer{
		ffmpeg:    ffmpegBin,
		ffprobe:   ffprobeBin,
		timeout:   timeout,
		workDir:   opts.WorkDir,
		logger:    logging.NewComponentLogger(opts.Logger, "frames"),
		durations: make(map[string]probeResult),
	}
}

// Duration returns the video duration in seconds, probing at most once per
// video. Zero means the duration is unknown.
func (c *Capturer) Duration(ctx context.Context, video string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.durations[video]; ok {
		return cached.seconds, cached.err
	}
	probe, err := ffprobe.Inspect(ctx, c.ffprobe, video)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		wrapped := services.Wrap(services.ErrExternalTool, "capture", "probe video", video, err)
		c.durations[video] = probeResult{err: wrapped}
		return 0, wrapped
	}
	if !probe.HasVideo {
		wrapped := services.Wrap(services.ErrValidation, "capture", "probe video", "no video stream", ErrNoVideo)
		c.durations[video] = probeResult{err: wrapped}
		return 0, wrapped
	}
	seconds := probe.Duration
	c.durations[video] = probeResult{seconds: seconds}
	c.logger.Debug("video probed", logging.String("video", video), logging.Float64("duration_seconds", seconds))
	return seconds, nil
}

// Capture grabs the frame at seconds and returns the encoded PNG bytes.
func (c *Capturer) Capture(ctx context.Context, video string, seconds float64) ([]byte, error) {
	video = strings.TrimSpace(video)
	if video == "" {
		return nil, services.Wrap(services.ErrValidation, "capture", "frame", "", ErrNoVideo)
	}
	if _, err := os.Stat(video); err != nil {
		return nil, services.Wrap(services.ErrValidation, "capture", "frame", video, errors.Join(ErrNoVideo, err))
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return nil, services.Wrap(services.ErrValidation, "capture", "frame", fmt.Sprintf("%v", seconds), ErrInvalidTimestamp)
	}
	duration, err := c.Duration(ctx, video)
	if err != nil {
		return nil, err
	}
	if duration > 0 && seconds >= duration {
		msg := fmt.Sprintf("%.3fs beyond duration %.3fs", seconds, duration)
		return nil, services.Wrap(services.ErrValidation, "capture", "frame", msg, ErrInvalidTimestamp)
	}

	if err := os.MkdirAll(c.dir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "capture", "frame", "ensure frame dir", err)
	}
	out := filepath.Join(c.dir(), fmt.Sprintf("frame-%09d-%03d.png", int64(math.Round(seconds*1000)), c.seq.Add(1)))

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	args := []string{
		"-y", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seconds),
		"-i", video,
		"-frames:v", "1",
		out,
	}
	cmd := exec.CommandContext(runCtx, c.ffmpeg, args...)
	cmd.WaitDelay = 5 * time.Second
	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "capture", "ffmpeg", fmt.Sprintf("exceeded %s", c.timeout), nil)
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "no stderr"
		}
		return nil, services.Wrap(services.ErrExternalTool, "capture", "ffmpeg", detail, runErr)
	}

	data, err := os.ReadFile(out)
	if err != nil || len(data) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "capture", "ffmpeg", out, errors.Join(ErrEmptyFrame, err))
	}
	return data, nil
}

func (c *Capturer) dir() string {
	if c.workDir != "" {
		return c.workDir
	}
	return os.TempDir()
}
