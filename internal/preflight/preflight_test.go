package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidpress/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func chatServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckLLM_OK(t *testing.T) {
	srv := chatServer(t, http.StatusOK)
	result := CheckLLM(context.Background(), "Plan LLM", config.LLM{
		Provider: config.LLMOpenAI, APIKey: "good-key", BaseURL: srv.URL, TimeoutSeconds: 5,
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "openai") {
		t.Fatalf("expected provider in detail, got %q", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := chatServer(t, http.StatusOK)
	result := CheckLLM(context.Background(), "Plan LLM", config.LLM{
		Provider: config.LLMOpenAI, APIKey: "bad-key", BaseURL: srv.URL, TimeoutSeconds: 5,
	})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Plan LLM", config.LLM{Provider: config.LLMGemini})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
}

func TestCheckGeneration(t *testing.T) {
	if r := CheckGeneration(context.Background(), config.Generation{Provider: config.GenerationNone}); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("expected disabled pass, got %+v", r)
	}
	if r := CheckGeneration(context.Background(), config.Generation{Provider: config.GenerationGemini}); r.Passed {
		t.Fatal("expected gemini without key to fail")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	r := CheckGeneration(context.Background(), config.Generation{Provider: config.GenerationPollinations, BaseURL: srv.URL, TimeoutSeconds: 5})
	if !r.Passed {
		t.Fatalf("expected reachable pollinations, got %+v", r)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	r = CheckGeneration(context.Background(), config.Generation{Provider: config.GenerationPollinations, BaseURL: down.URL, TimeoutSeconds: 5})
	if r.Passed {
		t.Fatal("expected failing pollinations check")
	}
}

func TestCheckPublish(t *testing.T) {
	if r := CheckPublish(context.Background(), config.Publish{Backend: config.PublishNone}); !r.Passed {
		t.Fatalf("expected disabled backend to pass, got %+v", r)
	}
	if r := CheckPublish(context.Background(), config.Publish{Backend: config.PublishWeChat}); r.Passed {
		t.Fatal("expected wechat without credentials to fail")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("secret") != "s3cret" {
			fmt.Fprint(w, `{"errcode":40125,"errmsg":"invalid appsecret"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok","expires_in":7200}`)
	}))
	defer srv.Close()

	ok := CheckPublish(context.Background(), config.Publish{
		Backend: config.PublishWeChat, WeChatAppID: "wx", WeChatAppSecret: "s3cret", WeChatBaseURL: srv.URL, TimeoutSeconds: 5,
	})
	if !ok.Passed {
		t.Fatalf("expected wechat credentials to verify, got %+v", ok)
	}
	bad := CheckPublish(context.Background(), config.Publish{
		Backend: config.PublishWeChat, WeChatAppID: "wx", WeChatAppSecret: "wrong", WeChatBaseURL: srv.URL, TimeoutSeconds: 5,
	})
	if bad.Passed || !strings.Contains(bad.Detail, "40125") {
		t.Fatalf("expected errcode in failure, got %+v", bad)
	}
}

func TestCheckSystemDeps_OptionalForAIOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.FFmpegBinary = "clearly-not-present-ffmpeg"
	cfg.Capture.FFprobeBinary = "clearly-not-present-ffprobe"

	for _, s := range CheckSystemDeps(&cfg) {
		if s.Available || s.Optional {
			t.Fatalf("expected required missing binary, got %+v", s)
		}
	}
	cfg.Assembly.Strategy = config.StrategyAIOnly
	for _, s := range CheckSystemDeps(&cfg) {
		if !s.Optional {
			t.Fatalf("expected optional binary under ai_only, got %+v", s)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, false)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Assembly.Strategy = config.StrategyVideoOnly
	cfg.Publish.Backend = config.PublishNone

	results := RunAll(context.Background(), &cfg, false)
	// workspace + state + publish
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesLLMWhenRequested(t *testing.T) {
	srv := chatServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "missing")
	cfg.Assembly.Strategy = config.StrategyHybrid
	cfg.Generation.Provider = config.GenerationNone
	cfg.Publish.Backend = config.PublishNone
	cfg.LLM = config.LLM{Provider: config.LLMOpenAI, APIKey: "good-key", BaseURL: srv.URL, TimeoutSeconds: 5}

	results := RunAll(context.Background(), &cfg, true)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if results[4].Name != "Plan LLM" || !results[4].Passed {
		t.Fatalf("unexpected llm result %+v", results[4])
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "State directory" {
		t.Fatalf("expected only the state directory to fail, got %+v", failed)
	}
}
