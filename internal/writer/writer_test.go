package writer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidpress/internal/config"
	"vidpress/internal/logging"
	"vidpress/internal/retry"
	"vidpress/internal/services"
	"vidpress/internal/writer"
)

const planJSON = `{"title":"Demo","lead":"intro","sections":[{"heading":"One","body_markdown":"Now watch this part.","image":{"need":true,"timestamp":"00:00:05","caption":"c","anchor":"watch this part"}}],"conclusion":"end","tags":["go"]}`

func fastPolicy() *retry.Policy {
	return retry.New(2, time.Millisecond, time.Millisecond, retry.WithSleeper(func(time.Duration) {}))
}

func TestBuildPromptCarriesRules(t *testing.T) {
	prompt := writer.BuildPrompt(writer.Request{
		Transcript:  "[00:00:01] hello",
		Instruction: "面向初学者",
		TargetWords: 1200,
		MaxImages:   3,
	})
	for _, want := range []string{"约 1200 字", "不能超过 3 张", "8-40 字符", "面向初学者", "[00:00:01] hello", `"body_markdown"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	open := writer.BuildPrompt(writer.Request{Transcript: "x"})
	if !strings.Contains(open, "配图数量不固定") || !strings.Contains(open, "约 3500 字") {
		t.Fatalf("expected open image rule and default target:\n%s", open)
	}
}

type chatRequest struct {
	Model          string            `json:"model"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func openAIServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/"
}

func chatReply(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%s}}]}`, encoded)
}

func TestOpenAIRequestsJSONObject(t *testing.T) {
	var got chatRequest
	var path string
	base := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply(planJSON))
	})
	client, err := writer.NewOpenAI(writer.OpenAIConfig{APIKey: "k", BaseURL: base, Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}

	w := writer.New(client, fastPolicy(), logging.NewNop())
	res, err := w.Plan(context.Background(), writer.Request{Transcript: "[00:00:01] hi", Instruction: "short"})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if path != "/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if got.Model != "test-model" || got.ResponseFormat["type"] != "json_object" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != writer.SystemPrompt {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if res.Tries != 1 || res.Plan["title"] != "Demo" || res.Raw != planJSON {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPlanRetriesServerErrorsAndBadJSON(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"busy","type":"server_error"}}`)
		case 2:
			_, _ = io.WriteString(w, chatReply(`{"title": "trunc`))
		default:
			_, _ = io.WriteString(w, chatReply("```json\n"+planJSON+"\n```"))
		}
	})
	client, err := writer.NewOpenAI(writer.OpenAIConfig{APIKey: "k", BaseURL: base})
	if err != nil {
		t.Fatal(err)
	}
	res, err := writer.New(client, fastPolicy(), nil).Plan(context.Background(), writer.Request{Transcript: "t"})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if res.Tries != 3 || calls.Load() != 3 {
		t.Fatalf("expected 3 tries, got %d (%d calls)", res.Tries, calls.Load())
	}
}

func TestPlanStopsOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	base := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	client, _ := writer.NewOpenAI(writer.OpenAIConfig{APIKey: "k", BaseURL: base})
	_, err := writer.New(client, fastPolicy(), nil).Plan(context.Background(), writer.Request{Transcript: "t"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestGeminiRequestsJSONMime(t *testing.T) {
	var body map[string]any
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		encoded, _ := json.Marshal(planJSON)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]},"finishReason":"STOP"}]}`, encoded)
	}))
	t.Cleanup(server.Close)

	client, err := writer.NewGemini(context.Background(), writer.GeminiConfig{APIKey: "k", BaseURL: server.URL + "/", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	res, err := writer.New(client, fastPolicy(), nil).Plan(context.Background(), writer.Request{Transcript: "t"})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !strings.Contains(path, "gemini-2.5-pro:generateContent") {
		t.Fatalf("unexpected path %q", path)
	}
	gen, _ := body["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Fatalf("expected json mime type, got %v", body["generationConfig"])
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Fatal("expected system instruction")
	}
	if res.Plan["title"] != "Demo" {
		t.Fatalf("unexpected plan: %v", res.Plan)
	}
}

func TestPlanRejectsEmptyTranscript(t *testing.T) {
	client, _ := writer.NewOpenAI(writer.OpenAIConfig{APIKey: "k"})
	_, err := writer.New(client, nil, nil).Plan(context.Background(), writer.Request{Transcript: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientSelectsProvider(t *testing.T) {
	ctx := context.Background()
	c, err := writer.NewClient(ctx, config.LLM{Provider: config.LLMOpenAI, APIKey: "k"})
	if err != nil || c.Name() != "openai" {
		t.Fatalf("unexpected client %v %v", c, err)
	}
	if _, err := writer.NewClient(ctx, config.LLM{Provider: config.LLMGemini}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if _, err := writer.NewClient(ctx, config.LLM{Provider: "claude", APIKey: "k"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}
