package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidpress/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvKeys(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("VIDPRESS_ENV_FILE", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorkspace := filepath.Join(tempHome, ".local", "share", "vidpress", "workspace")
	if cfg.Paths.WorkspaceDir != wantWorkspace {
		t.Fatalf("unexpected workspace dir: got %q want %q", cfg.Paths.WorkspaceDir, wantWorkspace)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "vidpress", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Assembly.Strategy != config.StrategyHybrid {
		t.Fatalf("expected hybrid strategy by default, got %q", cfg.Assembly.Strategy)
	}
	if cfg.Retry.MaxRetries != 2 {
		t.Fatalf("expected two retries by default, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Paths.RetentionDays != 0 {
		t.Fatalf("expected run pruning off by default, got %d days", cfg.Paths.RetentionDays)
	}
	if cfg.Image.MaxWidth != 1080 || cfg.Image.MaxBytes != 2*1024*1024 {
		t.Fatalf("unexpected image limits: %+v", cfg.Image)
	}
	if cfg.Generation.APIKey != "gem-key" {
		t.Fatalf("expected generation key from env, got %q", cfg.Generation.APIKey)
	}
	if !cfg.GenerationConfigured() {
		t.Fatal("expected gemini generation to be configured")
	}
	if cfg.PublishConfigured() {
		t.Fatal("expected publishing to be unconfigured by default")
	}
	if cfg.Publish.Backend != config.PublishNone {
		t.Fatalf("unexpected publish backend: %q", cfg.Publish.Backend)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIDPRESS_ENV_FILE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "vidpress.toml")

	custom := config.Default()
	custom.Paths.WorkspaceDir = filepath.Join(dir, "ws")
	custom.Assembly.Strategy = "Video-Only"
	custom.Assembly.Parallelism = 1
	custom.Image.Encoding = "jpg"
	custom.Publish.Backend = "WeChat"
	custom.Publish.WeChatAppID = "app"
	custom.Publish.WeChatAppSecret = "secret"
	custom.Publish.Prefix = "/articles/"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Assembly.Strategy != config.StrategyVideoOnly {
		t.Fatalf("expected normalized strategy, got %q", cfg.Assembly.Strategy)
	}
	if cfg.Image.Encoding != "jpeg" {
		t.Fatalf("expected jpg alias to normalize to jpeg, got %q", cfg.Image.Encoding)
	}
	if cfg.Publish.Prefix != "articles" {
		t.Fatalf("expected trimmed prefix, got %q", cfg.Publish.Prefix)
	}
	if !cfg.PublishConfigured() {
		t.Fatal("expected wechat backend to be configured")
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	envPath := filepath.Join(dir, "creds.env")
	content := "OPENAI_API_KEY=from-file\nWECHAT_APP_ID=file-app\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("VIDPRESS_ENV_FILE", envPath)
	t.Setenv("WECHAT_APP_ID", "from-env")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[llm]\nprovider = \"openai\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-file" {
		t.Fatalf("expected key from env file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("expected default openai model")
	}
	if cfg.Publish.WeChatAppID != "from-env" {
		t.Fatalf("expected process env to win, got %q", cfg.Publish.WeChatAppID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"strategy", func(c *config.Config) { c.Assembly.Strategy = "frames_first" }, "assembly.strategy"},
		{"parallelism", func(c *config.Config) { c.Assembly.Parallelism = 0 }, "assembly.parallelism"},
		{"retries", func(c *config.Config) { c.Retry.MaxRetries = 3 }, "retry.max_retries"},
		{"encoding", func(c *config.Config) { c.Image.Encoding = "webp" }, "image.encoding"},
		{"quality", func(c *config.Config) { c.Image.QualityStart = 20 }, "image.quality_start"},
		{"backend", func(c *config.Config) { c.Publish.Backend = "oss" }, "publish.backend"},
		{"timeout", func(c *config.Config) { c.Capture.TimeoutSeconds = 0 }, "capture.timeout_seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Publish.Backend = config.PublishNone
			cfg.Generation.Provider = config.GenerationNone
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIDPRESS_ENV_FILE", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIDPRESS_ENV_FILE", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[assembly]\nstrategey = \"ai_only\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "strategey") {
		t.Fatalf("expected unknown key error naming strategey, got %v", err)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-live"
	cfg.Publish.WeChatAppSecret = "wx-secret"
	red := cfg.Redacted()
	if red.LLM.APIKey == "sk-live" || red.Publish.WeChatAppSecret == "wx-secret" {
		t.Fatalf("secrets not masked: %+v %+v", red.LLM, red.Publish)
	}
	if red.Generation.APIKey != "" {
		t.Fatalf("expected empty key to stay empty, got %q", red.Generation.APIKey)
	}
	if cfg.LLM.APIKey != "sk-live" {
		t.Fatal("Redacted modified the receiver")
	}
}
