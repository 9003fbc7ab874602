package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssembly()
	c.normalizeCapture()
	c.normalizeImage()
	c.normalizeGeneration()
	if err := c.normalizePublish(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = ExpandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssembly() {
	c.Assembly.Strategy = strings.ToLower(strings.TrimSpace(c.Assembly.Strategy))
	c.Assembly.Strategy = strings.ReplaceAll(c.Assembly.Strategy, "-", "_")
	if c.Assembly.Strategy == "" {
		c.Assembly.Strategy = defaultStrategy
	}
	if c.Assembly.Parallelism == 0 {
		c.Assembly.Parallelism = defaultParallelism
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	c.Capture.FFprobeBinary = strings.TrimSpace(c.Capture.FFprobeBinary)
	if c.Capture.FFprobeBinary == "" {
		c.Capture.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeImage() {
	c.Image.Encoding = strings.ToLower(strings.TrimSpace(c.Image.Encoding))
	switch c.Image.Encoding {
	case "", "jpg":
		c.Image.Encoding = defaultImageEncoding
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Provider = strings.ToLower(strings.TrimSpace(c.Generation.Provider))
	if c.Generation.Provider == "" {
		c.Generation.Provider = GenerationNone
	}
	c.Generation.APIKey = strings.TrimSpace(c.Generation.APIKey)
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	c.Generation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Generation.BaseURL), "/")
	switch c.Generation.Provider {
	case GenerationGemini:
		if c.Generation.APIKey == "" {
			c.Generation.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
		if c.Generation.Model == "" {
			c.Generation.Model = firstEnv("GEMINI_IMAGE_MODEL")
		}
		if c.Generation.Model == "" {
			c.Generation.Model = defaultGeminiImageModel
		}
	case GenerationPollinations:
		if c.Generation.BaseURL == "" {
			c.Generation.BaseURL = defaultPollinationsBaseURL
		}
	}
}

func (c *Config) normalizePublish() error {
	c.Publish.Backend = strings.ToLower(strings.TrimSpace(c.Publish.Backend))
	if c.Publish.Backend == "" {
		c.Publish.Backend = PublishNone
	}
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.Style = strings.TrimSpace(c.Publish.Style)
	c.Publish.GCSBucket = strings.TrimSpace(c.Publish.GCSBucket)
	c.Publish.GCSPublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.GCSPublicBaseURL), "/")
	c.Publish.WeChatBaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.WeChatBaseURL), "/")
	if c.Publish.WeChatBaseURL == "" {
		c.Publish.WeChatBaseURL = defaultWeChatBaseURL
	}
	if c.Publish.WeChatAppID == "" {
		c.Publish.WeChatAppID = firstEnv("WECHAT_APP_ID")
	}
	if c.Publish.WeChatAppSecret == "" {
		c.Publish.WeChatAppSecret = firstEnv("WECHAT_APP_SECRET")
	}
	c.Publish.WeChatAppID = strings.TrimSpace(c.Publish.WeChatAppID)
	c.Publish.WeChatAppSecret = strings.TrimSpace(c.Publish.WeChatAppSecret)
	if strings.TrimSpace(c.Publish.GCSCredentialsFile) == "" {
		c.Publish.GCSCredentialsFile = firstEnv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Publish.GCSCredentialsFile != "" {
		expanded, err := ExpandPath(c.Publish.GCSCredentialsFile)
		if err != nil {
			return fmt.Errorf("publish.gcs_credentials_file: %w", err)
		}
		c.Publish.GCSCredentialsFile = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case LLMGemini:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultGeminiTextModel
		}
	case LLMOpenAI:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = firstEnv("OPENAI_API_KEY")
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = firstEnv("OPENAI_BASE_URL")
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenAIModel
		}
	}
	if c.LLM.TargetWords <= 0 {
		c.LLM.TargetWords = defaultLLMTargetWords
	}
}

func (c *Config) normalizeRender() {
	c.Render.ConclusionHeading = strings.TrimSpace(c.Render.ConclusionHeading)
	if c.Render.ConclusionHeading == "" {
		c.Render.ConclusionHeading = defaultConclusionHeading
	}
	c.Render.TagsLabel = strings.TrimSpace(c.Render.TagsLabel)
	if c.Render.TagsLabel == "" {
		c.Render.TagsLabel = defaultTagsLabel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
