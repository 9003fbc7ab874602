package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"vidpress/internal/config"
	"vidpress/internal/logging"
	"vidpress/internal/services"
)

const excerptRunes = 600

var (
	// ErrNotConfigured is returned by New when no provider is selected.
	ErrNotConfigured = errors.New("image generation not configured")
	// ErrNoImage marks responses that carried no image payload.
	ErrNoImage = errors.New("response contained no image")
	// ErrContentPolicy marks requests refused by the provider's safety filters.
	ErrContentPolicy = errors.New("request blocked by content policy")
)

// Prompt describes the illustration for one section.
type Prompt struct {
	// Text is the caption, alt text or heading, in that order of preference.
	Text    string
	Heading string
	Title   string
	Body    string
	// Seed keeps providers that accept one deterministic per section.
	Seed int
}

// Generator returns an encoded image for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) ([]byte, error)
}

// BuildPrompt renders the provider-independent instruction text.
func BuildPrompt(p Prompt) string {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "未命名文章"
	}
	heading := strings.TrimSpace(p.Heading)
	caption := strings.TrimSpace(p.Text)
	if caption == "" {
		caption = heading
	}

	var b strings.Builder
	b.WriteString("你是专业编辑插画师，请为中文长文生成一张高质量配图。\n\n")
	fmt.Fprintf(&b, "文章标题：%s\n", title)
	fmt.Fprintf(&b, "章节标题：%s\n", heading)
	fmt.Fprintf(&b, "图片说明：%s\n", caption)
	if excerpt := Excerpt(p.Body); excerpt != "" {
		fmt.Fprintf(&b, "\n章节摘要：\n%s\n", excerpt)
	}
	b.WriteString("\n要求：\n")
	b.WriteString("1. 16:9 横图，适合公众号和 WordPress。\n")
	b.WriteString("2. 风格写实偏信息可视化，简洁、现代，不要廉价卡通感。\n")
	b.WriteString("3. 不要任何文字、Logo、水印。\n")
	b.WriteString("4. 画面主体清晰，突出本章节核心概念。\n")
	b.WriteString("5. 避免畸形人脸和奇怪手部细节。")
	return b.String()
}

// Excerpt collapses whitespace in body and keeps the first 600 runes.
func Excerpt(body string) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(collapsed) <= excerptRunes {
		return collapsed
	}
	runes := []rune(collapsed)
	return string(runes[:excerptRunes])
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	limiter *rate.Limiter
}

// WithLogger attaches a logger to the constructed generator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLimiter replaces the limiter derived from requests_per_minute.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

// New builds the configured provider wrapped in a fresh rate limiter. Each
// run calls New so limiters are never shared between runs.
func New(ctx context.Context, cfg config.Generation, opts ...Option) (Generator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var gen Generator
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.GenerationNone:
		return nil, ErrNotConfigured
	case config.GenerationGemini:
		g, err := NewGemini(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		gen = g
	case config.GenerationPollinations:
		gen = NewPollinations(PollinationsConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "generate", "select provider", cfg.Provider, nil)
	}

	limiter := o.limiter
	if limiter == nil {
		limiter = NewLimiter(cfg.RequestsPerMinute)
	}
	return WithRateLimit(gen, limiter, o.logger), nil
}

// NewLimiter allows rpm requests per minute with a burst of two. A
// non-positive rpm disables limiting.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 2)
}

type limited struct {
	next    Generator
	limiter *rate.Limiter
	logger  *slog.Logger
}

// WithRateLimit makes every Generate call wait on limiter first.
func WithRateLimit(gen Generator, limiter *rate.Limiter, logger *slog.Logger) Generator {
	if limiter == nil {
		return gen
	}
	return &limited{
		next:    gen,
		limiter: limiter,
		logger:  logging.NewComponentLogger(logger, "imagegen"),
	}
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrRateLimited, "generate", "wait for rate limiter", l.next.Name(), err)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		logging.WithContext(ctx, l.logger).Debug("generation throttled",
			logging.String("provider", l.next.Name()),
			logging.Duration("waited", waited),
		)
	}
	return l.next.Generate(ctx, prompt)
}
