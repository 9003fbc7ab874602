package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidpress/internal/config"
	"vidpress/internal/logging"
	"vidpress/internal/plan"
	"vidpress/internal/retry"
	"vidpress/internal/services"
)

// ErrEmptyResponse reports a model reply without usable text.
var ErrEmptyResponse = errors.New("model returned no content")

// Client completes a prompt pair into raw JSON text.
type Client interface {
	Name() string
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// NewClient builds the client named by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLM) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.LLMOpenAI:
		return NewOpenAI(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout})
	case config.LLMGemini, "":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "plan", "client", fmt.Sprintf("unknown llm provider %q", cfg.Provider), nil)
	}
}

// Result is a plan request outcome.
type Result struct {
	// Raw is the model text exactly as returned.
	Raw   string
	Plan  plan.RawPlan
	Tries int
}

// Writer runs plan requests under the retry policy.
type Writer struct {
	client Client
	policy *retry.Policy
	logger *slog.Logger
}

// New wraps client. A nil policy uses retry.Default.
func New(client Client, policy *retry.Policy, logger *slog.Logger) *Writer {
	if policy == nil {
		policy = retry.Default()
	}
	return &Writer{client: client, policy: policy, logger: logging.NewComponentLogger(logger, "writer")}
}

// Plan requests a plan and decodes it. A reply that does not decode is
// retried like a transient failure; it is usually a truncated completion.
func (w *Writer) Plan(ctx context.Context, req Request) (Result, error) {
	if w.client == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "plan", "request", "no llm client", nil)
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "plan", "request", "transcript is empty", nil)
	}
	prompt := BuildPrompt(req)
	start := time.Now()

	var lastRaw string
	parsed, tries, err := retry.Value(ctx, w.policy, "plan request", func(ctx context.Context) (plan.RawPlan, error) {
		raw, err := w.client.CompleteJSON(ctx, SystemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		lastRaw = raw
		parsed, err := plan.Parse([]byte(raw), plan.FormatJSON)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "plan", "decode reply", "", err)
		}
		return parsed, nil
	})
	if err != nil {
		logging.WarnWithContext(w.logger, "plan request failed", "plan_request_failed",
			logging.String("provider", w.client.Name()),
			logging.Int("tries", tries),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm credentials and model name"),
			logging.String(logging.FieldImpact, "no article plan was produced"),
		)
		return Result{Raw: lastRaw, Tries: tries}, err
	}
	w.logger.Info("plan received",
		logging.String("provider", w.client.Name()),
		logging.Int("tries", tries),
		logging.Int("bytes", len(lastRaw)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "plan_received"),
	)
	return Result{Raw: lastRaw, Plan: parsed, Tries: tries}, nil
}
