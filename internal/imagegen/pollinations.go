package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidpress/internal/retry"
	"vidpress/internal/services"
)

const (
	defaultPollinationsBaseURL = "https://image.pollinations.ai"
	defaultPollinationsModel   = "flux"
	minImageBytes              = 100
	pollinationsStyle          = "16:9 editorial illustration, realistic, clean modern look, no text, no logo, no watermark"
)

// PollinationsConfig configures the Pollinations provider.
type PollinationsConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Pollinations generates images through the keyless Pollinations endpoint.
type Pollinations struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewPollinations builds the provider with defaults for empty fields.
func NewPollinations(cfg PollinationsConfig) *Pollinations {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultPollinationsBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = defaultPollinationsModel
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Pollinations{baseURL: base, model: model, httpClient: client}
}

// Name identifies the provider in logs and manifests.
func (p *Pollinations) Name() string { return "pollinations" }

// RequestURL returns the GET URL for prompt.
func (p *Pollinations) RequestURL(prompt Prompt) string {
	query := url.Values{}
	query.Set("width", "1920")
	query.Set("height", "1080")
	query.Set("nologo", "true")
	query.Set("model", p.model)
	query.Set("seed", fmt.Sprintf("%d", prompt.Seed))
	return fmt.Sprintf("%s/prompt/%s?%s", p.baseURL, url.PathEscape(compactPrompt(prompt)), query.Encode())
}

// Generate downloads one image.
func (p *Pollinations) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.RequestURL(prompt), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "generate", "pollinations request", "", err)
	}
	req.Header.Set("User-Agent", "vidpress/1.0 (+article illustrations)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "generate", "pollinations", "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "generate", "pollinations", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewStatusError("pollinations", resp, data)
	}
	if len(data) < minImageBytes {
		msg := fmt.Sprintf("response too small (%d bytes)", len(data))
		return nil, services.Wrap(services.ErrExternalTool, "generate", "pollinations", msg, ErrNoImage)
	}
	return data, nil
}

// compactPrompt keeps the URL short: the caption, the heading and style hints.
func compactPrompt(p Prompt) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Text, p.Heading} {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" && (len(parts) == 0 || parts[len(parts)-1] != s) {
			parts = append(parts, s)
		}
	}
	parts = append(parts, pollinationsStyle)
	return strings.Join(parts, ", ")
}
