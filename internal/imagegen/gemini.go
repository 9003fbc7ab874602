package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"vidpress/internal/services"
)

const (
	defaultGeminiModel = "gemini-2.5-flash-image"
	aspectRatio        = "16:9"
)

// GeminiConfig configures the Gemini image provider.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Gemini generates images through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini client. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "gemini client", "api key required", nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "gemini client", "", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Name identifies the provider in logs and manifests.
func (g *Gemini) Name() string { return "gemini" }

// Generate requests a single 16:9 image.
func (g *Gemini) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(prompt)), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
	})
	if err != nil {
		return nil, classifyGeminiError(ctx, err)
	}
	if data := extractImage(resp); len(data) > 0 {
		return data, nil
	}
	if reason := blockedReason(resp); reason != "" {
		return nil, services.Wrap(services.ErrValidation, "generate", "gemini", reason, ErrContentPolicy)
	}
	return nil, services.Wrap(services.ErrExternalTool, "generate", "gemini", g.model, ErrNoImage)
}

func extractImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			if strings.HasPrefix(part.InlineData.MIMEType, "image/") && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

func blockedReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonImageSafety:
			return fmt.Sprintf("finish reason %s", candidate.FinishReason)
		}
	}
	return ""
}

func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return services.Wrap(services.ErrRateLimited, "generate", "gemini", apiErr.Message, err)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "generate", "gemini", apiErr.Message, err)
		default:
			return services.Wrap(services.ErrExternalTool, "generate", "gemini", apiErr.Message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "generate", "gemini", "", err)
	}
	return services.Wrap(services.ErrExternalTool, "generate", "gemini", "", err)
}
