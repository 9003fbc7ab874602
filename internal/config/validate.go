package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.RetentionDays < 0 {
		return errors.New("paths.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	switch c.Assembly.Strategy {
	case StrategyVideoOnly, StrategyHybrid, StrategyAIOnly:
	default:
		return fmt.Errorf("assembly.strategy must be one of %s, %s, %s (got %q)",
			StrategyVideoOnly, StrategyHybrid, StrategyAIOnly, c.Assembly.Strategy)
	}
	if c.Assembly.Parallelism < 1 {
		return errors.New("assembly.parallelism must be at least 1")
	}
	if c.Assembly.MaxImages < 0 {
		return errors.New("assembly.max_images must not be negative")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 2 {
		return errors.New("retry.max_retries must be between 0 and 2")
	}
	if c.Retry.BaseDelayMillis < 0 {
		return errors.New("retry.base_delay_ms must not be negative")
	}
	if c.Retry.MaxDelayMillis < c.Retry.BaseDelayMillis {
		return errors.New("retry.max_delay_ms must be at least retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateCapture() error {
	return ensurePositiveMap(map[string]int{
		"capture.timeout_seconds":    c.Capture.TimeoutSeconds,
		"generation.timeout_seconds": c.Generation.TimeoutSeconds,
		"publish.timeout_seconds":    c.Publish.TimeoutSeconds,
		"llm.timeout_seconds":        c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateImage() error {
	if c.Image.MaxWidth <= 0 {
		return errors.New("image.max_width must be positive")
	}
	if c.Image.MaxBytes <= 0 {
		return errors.New("image.max_bytes must be positive")
	}
	switch c.Image.Encoding {
	case "jpeg", "png":
	default:
		return fmt.Errorf("image.encoding must be jpeg or png (got %q)", c.Image.Encoding)
	}
	if c.Image.QualityFloor < 1 || c.Image.QualityFloor > 100 {
		return errors.New("image.quality_floor must be between 1 and 100")
	}
	if c.Image.QualityStart < c.Image.QualityFloor || c.Image.QualityStart > 100 {
		return errors.New("image.quality_start must be between image.quality_floor and 100")
	}
	if c.Image.QualityStep <= 0 {
		return errors.New("image.quality_step must be positive")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	switch c.Generation.Provider {
	case GenerationNone, GenerationGemini, GenerationPollinations:
	default:
		return fmt.Errorf("generation.provider must be none, gemini, or pollinations (got %q)", c.Generation.Provider)
	}
	if c.Generation.RequestsPerMinute < 0 {
		return errors.New("generation.requests_per_minute must not be negative")
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Backend {
	case PublishNone, PublishGCS, PublishWeChat:
	default:
		return fmt.Errorf("publish.backend must be none, gcs, or wechat (got %q)", c.Publish.Backend)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case LLMGemini, LLMOpenAI:
	default:
		return fmt.Errorf("llm.provider must be gemini or openai (got %q)", c.LLM.Provider)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
