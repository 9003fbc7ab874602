package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"vidpress/internal/config"
	"vidpress/internal/deps"
	"vidpress/internal/imagegen"
	"vidpress/internal/publish"
	"vidpress/internal/writer"
)

const (
	llmCheckTimeout     = 30 * time.Second
	publishCheckTimeout = 15 * time.Second
	httpCheckTimeout    = 5 * time.Second
)

// CheckLLM verifies that the plan LLM is reachable and the key is valid.
// It sends one tiny JSON request with no retries.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	client, err := writer.NewClient(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if _, err := client.CompleteJSON(checkCtx, "Reply with a JSON object.", `Return {"ok": true}.`); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Name())}
}

// CheckGeneration verifies the synthetic image provider. Gemini is only
// checked for credentials since every request is billed; Pollinations is
// probed over HTTP.
func CheckGeneration(ctx context.Context, cfg config.Generation) Result {
	const name = "Image generation"

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", config.GenerationNone:
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	case config.GenerationGemini:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return Result{Name: name, Detail: "gemini: API key missing"}
		}
	}

	gen, err := imagegen.New(ctx, cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if provider == config.GenerationPollinations {
		if detail, ok := probeHTTP(ctx, cfg.BaseURL); !ok {
			return Result{Name: name, Detail: "pollinations: " + detail}
		}
		return Result{Name: name, Passed: true, Detail: "pollinations reachable"}
	}
	return Result{Name: name, Passed: true, Detail: gen.Name() + " configured"}
}

// CheckPublish builds the remote backend and verifies its credentials.
func CheckPublish(ctx context.Context, cfg config.Publish) Result {
	const name = "Image hosting"

	checkCtx, cancel := context.WithTimeout(ctx, publishCheckTimeout)
	defer cancel()

	store, err := publish.NewStore(checkCtx, cfg)
	if errors.Is(err, publish.ErrNotConfigured) {
		return Result{Name: name, Passed: true, Detail: "Disabled (local file URLs)"}
	}
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if verifier, ok := store.(publish.Verifier); ok {
		if err := verifier.Verify(checkCtx); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s: %v", store.Name(), err)}
		}
	}
	return Result{Name: name, Passed: true, Detail: store.Name() + " credentials ok"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the ffmpeg toolchain. Frame capture is never
// used by the ai_only strategy, so the binaries become optional there.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	optional := cfg.Assembly.Strategy == config.StrategyAIOnly
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Capture.FFmpegBinary,
			Description: "Required for frame capture",
			Optional:    optional,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Capture.FFprobeBinary,
			Description: "Required for timestamp validation",
			Optional:    optional,
		},
	})
}

func probeHTTP(ctx context.Context, rawURL string) (string, bool) {
	base := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if base == "" {
		return "missing url", false
	}
	checkCtx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return fmt.Sprintf("check failed (%v)", err), false
	}
	client := &http.Client{Timeout: httpCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("check failed (%v)", err), false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Sprintf("check failed (%d)", resp.StatusCode), false
	}
	return "reachable", true
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
