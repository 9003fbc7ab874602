package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vidpress/internal/services"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 5 * time.Second
)

// StatusError reports a non-success HTTP response from a collaborator.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	op := e.Op
	if op == "" {
		op = "request"
	}
	return fmt.Sprintf("%s: http %d: %s", op, e.StatusCode, summarize(e.Body))
}

// Transient reports whether the status code is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// NewStatusError builds a StatusError from a response whose body was already read.
func NewStatusError(op string, resp *http.Response, body []byte) *StatusError {
	err := &StatusError{Op: op, Body: strings.TrimSpace(string(body))}
	if resp != nil {
		err.StatusCode = resp.StatusCode
		err.RetryAfter, _ = ParseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return err
}

// Policy retries transient failures a bounded number of times.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleeper    func(time.Duration)
	classify   func(error) (bool, time.Duration)
}

// Option customizes the policy.
type Option func(*Policy)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Policy) {
		p.sleeper = sleeper
	}
}

// WithClassifier adds a collaborator-specific classification consulted before
// the built-in rules. It returns whether err is transient and an optional
// delay hint; a false result falls through to the built-in rules.
func WithClassifier(classify func(error) (bool, time.Duration)) Option {
	return func(p *Policy) {
		p.classify = classify
	}
}

// New constructs a policy. maxRetries counts retries after the first try.
func New(maxRetries int, baseDelay, maxDelay time.Duration, opts ...Option) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay < 0 {
		baseDelay = defaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	p := &Policy{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Default returns the policy used when nothing is configured.
func Default() *Policy {
	return New(defaultMaxRetries, defaultBaseDelay, defaultMaxDelay)
}

// MaxAttempts returns the total number of tries, including the first.
func (p *Policy) MaxAttempts() int {
	if p == nil {
		return 1
	}
	return p.maxRetries + 1
}

// Do runs op until it succeeds, fails structurally, or the retry budget is
// spent. It returns the number of tries performed.
func (p *Policy) Do(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	attempts := p.MaxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		delay, retry := p.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if attempt > 1 {
				return attempt, fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return attempt, err
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return attempt, fmt.Errorf("%s: %w (last error: %v)", op, sleepErr, lastErr)
		}
	}
	return attempts, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

// Value runs fn under the policy and returns its result.
func Value[T any](ctx context.Context, p *Policy, op string, fn func(context.Context) (T, error)) (T, int, error) {
	var out T
	tries, err := p.Do(ctx, op, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	return out, tries, err
}

// IsTransient classifies err with the built-in rules.
func IsTransient(err error) bool {
	transient, _ := classify(err)
	return transient
}

func (p *Policy) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if p != nil && p.classify != nil {
		if transient, hint := p.classify(err); transient {
			if hint > 0 {
				return p.capDelay(hint), true
			}
			return p.backoffDelay(attempt), true
		}
	}
	transient, hint := classify(err)
	if !transient {
		return 0, false
	}
	if hint > 0 {
		return p.capDelay(hint), true
	}
	return p.backoffDelay(attempt), true
}

func classify(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Transient() {
			return true, statusErr.RetryAfter
		}
		return false, 0
	}

	if services.IsTransient(err) {
		return true, 0
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true, 0
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true, 0
	}

	return false, 0
}

func (p *Policy) backoffDelay(attempt int) time.Duration {
	base := defaultBaseDelay
	maxDelay := defaultMaxDelay
	if p != nil {
		base = p.baseDelay
		maxDelay = p.maxDelay
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p *Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultMaxDelay
	if p != nil && p.maxDelay > 0 {
		maxDelay = p.maxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p *Policy) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if p != nil && p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter parses a Retry-After header in seconds or HTTP-date form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarize(content string) string {
	trimmed := strings.Join(strings.Fields(content), " ")
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
