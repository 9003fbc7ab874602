package writer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"vidpress/internal/services"
)

const defaultGeminiModel = "gemini-2.5-pro"

// GeminiConfig configures the Gemini text model.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Gemini requests plans from the Gemini API in JSON mode.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini client. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "gemini client", "api key required", nil)
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
		return nil, services.Wrap(services.ErrConfiguration, "plan", "gemini client", "", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Name identifies the provider in logs.
func (g *Gemini) Name() string { return "gemini" }

// CompleteJSON asks for an application/json response.
func (g *Gemini) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", classifyGeminiError(ctx, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text != "" {
		return text, nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", services.Wrap(services.ErrValidation, "plan", "gemini", "prompt blocked: "+string(resp.PromptFeedback.BlockReason), ErrEmptyResponse)
	}
	return "", services.Wrap(services.ErrTransient, "plan", "gemini", g.model, ErrEmptyResponse)
}

func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return services.Wrap(services.ErrRateLimited, "plan", "gemini", apiErr.Message, err)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "plan", "gemini", apiErr.Message, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "plan", "gemini", apiErr.Message, err)
		default:
			return services.Wrap(services.ErrExternalTool, "plan", "gemini", apiErr.Message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "plan", "gemini", "", err)
	}
	return services.Wrap(services.ErrExternalTool, "plan", "gemini", "", err)
}
