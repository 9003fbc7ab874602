package config

// Strategy values accepted by assembly.strategy.
const (
	StrategyVideoOnly = "video_only"
	StrategyHybrid    = "hybrid"
	StrategyAIOnly    = "ai_only"
)

// Generation providers accepted by generation.provider.
const (
	GenerationNone         = "none"
	GenerationGemini       = "gemini"
	GenerationPollinations = "pollinations"
)

// Publish backends accepted by publish.backend.
const (
	PublishNone   = "none"
	PublishGCS    = "gcs"
	PublishWeChat = "wechat"
)

// LLM providers accepted by llm.provider.
const (
	LLMGemini = "gemini"
	LLMOpenAI = "openai"
)

const (
	defaultWorkspaceDir          = "~/.local/share/vidpress/workspace"
	defaultStateDir              = "~/.local/share/vidpress"
	defaultLogDir                = "~/.local/share/vidpress/logs"
	defaultRetentionDays         = 0
	defaultStrategy              = StrategyHybrid
	defaultParallelism           = 3
	defaultMaxRetries            = 2
	defaultRetryBaseDelayMillis  = 500
	defaultRetryMaxDelayMillis   = 5000
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultCaptureTimeoutSeconds = 60
	defaultImageMaxWidth         = 1080
	defaultImageMaxBytes         = 2 * 1024 * 1024
	defaultImageEncoding         = "jpeg"
	defaultImageQualityStart     = 90
	defaultImageQualityStep      = 10
	defaultImageQualityFloor     = 30
	defaultGenerationProvider    = GenerationGemini
	defaultGeminiImageModel      = "gemini-2.5-flash-image"
	defaultPollinationsBaseURL   = "https://image.pollinations.ai"
	defaultGenerationRPM         = 10
	defaultGenerationTimeout     = 120
	defaultPublishPrefix         = "wechat_article"
	defaultPublishTimeout        = 30
	defaultWeChatBaseURL         = "https://api.weixin.qq.com"
	defaultLLMProvider           = LLMGemini
	defaultGeminiTextModel       = "gemini-2.5-pro"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultLLMTargetWords        = 3500
	defaultLLMTimeoutSeconds     = 180
	defaultConclusionHeading     = "总结"
	defaultTagsLabel             = "关键词："
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir:  defaultWorkspaceDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			RetentionDays: defaultRetentionDays,
		},
		Assembly: Assembly{
			Strategy:    defaultStrategy,
			Parallelism: defaultParallelism,
		},
		Retry: Retry{
			MaxRetries:      defaultMaxRetries,
			BaseDelayMillis: defaultRetryBaseDelayMillis,
			MaxDelayMillis:  defaultRetryMaxDelayMillis,
		},
		Capture: Capture{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultCaptureTimeoutSeconds,
		},
		Image: Image{
			MaxWidth:     defaultImageMaxWidth,
			MaxBytes:     defaultImageMaxBytes,
			Encoding:     defaultImageEncoding,
			QualityStart: defaultImageQualityStart,
			QualityStep:  defaultImageQualityStep,
			QualityFloor: defaultImageQualityFloor,
		},
		Generation: Generation{
			Provider:          defaultGenerationProvider,
			RequestsPerMinute: defaultGenerationRPM,
			TimeoutSeconds:    defaultGenerationTimeout,
		},
		Publish: Publish{
			Prefix:         defaultPublishPrefix,
			TimeoutSeconds: defaultPublishTimeout,
			WeChatBaseURL:  defaultWeChatBaseURL,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			TargetWords:    defaultLLMTargetWords,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Render: Render{
			ConclusionHeading: defaultConclusionHeading,
			TagsLabel:         defaultTagsLabel,
			HTML:              true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
