package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`

	// RetentionDays prunes finished run directories older than this many
	// days at the start of each run. Zero, the default, keeps everything;
	// pruning removes the local images LOCAL_ONLY articles link to.
	RetentionDays int `toml:"retention_days"`
}

// Assembly contains the engine-wide imaging policy.
type Assembly struct {
	Strategy    string `toml:"strategy"`
	Parallelism int    `toml:"parallelism"`
	MaxImages   int    `toml:"max_images"`
}

// Retry configures the bounded retry policy shared by capture, generation,
// upload, and plan requests.
type Retry struct {
	MaxRetries      int `toml:"max_retries"`
	BaseDelayMillis int `toml:"base_delay_ms"`
	MaxDelayMillis  int `toml:"max_delay_ms"`
}

// Capture contains configuration for ffmpeg frame capture.
type Capture struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Image contains the publishing-platform image constraints.
type Image struct {
	MaxWidth     int    `toml:"max_width"`
	MaxBytes     int64  `toml:"max_bytes"`
	Encoding     string `toml:"encoding"`
	QualityStart int    `toml:"quality_start"`
	QualityStep  int    `toml:"quality_step"`
	QualityFloor int    `toml:"quality_floor"`
}

// Generation contains configuration for synthetic image generation.
type Generation struct {
	Provider          string `toml:"provider"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Publish contains configuration for remote image hosting.
type Publish struct {
	Backend            string `toml:"backend"`
	Prefix             string `toml:"prefix"`
	Style              string `toml:"style"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	GCSBucket          string `toml:"gcs_bucket"`
	GCSCredentialsFile string `toml:"gcs_credentials_file"`
	GCSPublicBaseURL   string `toml:"gcs_public_base_url"`
	WeChatAppID        string `toml:"wechat_app_id"`
	WeChatAppSecret    string `toml:"wechat_app_secret"`
	WeChatBaseURL      string `toml:"wechat_base_url"`
}

// LLM contains the settings for the plan request collaborator.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TargetWords    int    `toml:"target_words"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains article rendering labels.
type Render struct {
	ConclusionHeading string `toml:"conclusion_heading"`
	TagsLabel         string `toml:"tags_label"`
	HTML              bool   `toml:"html"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidpress.
//
// Configuration sections by subsystem:
//   - Paths: workspace, state (history database), and log directories
//   - Assembly: acquisition strategy, I/O parallelism, image cap
//   - Retry: bounded retry policy for external operations
//   - Capture: ffmpeg/ffprobe binaries and per-capture timeout
//   - Image: max width, byte ceiling, encoding, quality ladder
//   - Generation: synthetic image provider settings
//   - Publish: remote image hosting backend and object layout
//   - LLM: plan request collaborator
//   - Render: article labels and HTML export
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Assembly   Assembly   `toml:"assembly"`
	Retry      Retry      `toml:"retry"`
	Capture    Capture    `toml:"capture"`
	Image      Image      `toml:"image"`
	Generation Generation `toml:"generation"`
	Publish    Publish    `toml:"publish"`
	LLM        LLM        `toml:"llm"`
	Render     Render     `toml:"render"`
	Logging    Logging    `toml:"logging"`
}

// EnsureDirectories creates the workspace, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite run history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// RetryBaseDelay returns the first retry backoff.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMillis) * time.Millisecond
}

// RetryMaxDelay returns the retry backoff cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMillis) * time.Millisecond
}

// CaptureTimeout returns the per-frame capture timeout.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutSeconds) * time.Second
}

// GenerationConfigured reports whether a synthetic provider can be used.
func (c *Config) GenerationConfigured() bool {
	switch c.Generation.Provider {
	case GenerationGemini:
		return c.Generation.APIKey != ""
	case GenerationPollinations:
		return c.Generation.BaseURL != ""
	default:
		return false
	}
}

// PublishConfigured reports whether the remote backend has the credentials it needs.
func (c *Config) PublishConfigured() bool {
	switch c.Publish.Backend {
	case PublishGCS:
		return c.Publish.GCSBucket != ""
	case PublishWeChat:
		return c.Publish.WeChatAppID != "" && c.Publish.WeChatAppSecret != ""
	default:
		return false
	}
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy with API keys and secrets masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	for _, secret := range []*string{
		&out.Generation.APIKey,
		&out.LLM.APIKey,
		&out.Publish.WeChatAppSecret,
	} {
		if *secret != "" {
			*secret = "********"
		}
	}
	return out
}
