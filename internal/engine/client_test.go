package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	backoffUnit = time.Millisecond
}

func chatCompletionJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAIComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-mock" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer sk-mock")
		}
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("request model = %q, want %q", req.Model, "test-model")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON("Hello from mock!")))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-mock", WithModel("test-model"), WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Hello from mock!" {
		t.Errorf("Complete = %q", got)
	}
}

func TestOpenAIComplete_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":{"message":"upstream"}}`))
			return
		}
		w.Write([]byte(chatCompletionJSON("second time lucky")))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-mock", WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "second time lucky" || calls.Load() != 2 {
		t.Errorf("Complete = %q after %d calls", got, calls.Load())
	}
}

func TestOpenAIComplete_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-bad", WithBaseURL(srv.URL))
	if _, err := c.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClaudeComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		var req claudeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "claude-test" || req.Messages[0].Content != "hi" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"part one, "},{"type":"tool_use"},{"type":"text","text":"part two"}]}`))
	}))
	defer srv.Close()

	c := NewClaudeClient("ak", WithClaudeModel("claude-test"), WithClaudeBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "part one, part two" {
		t.Errorf("Complete = %q", got)
	}
}

func TestClaudeComplete_NonRetryable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"prompt too long"}}`))
	}))
	defer srv.Close()

	c := NewClaudeClient("ak", WithClaudeBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "HTTP 400") {
		t.Fatalf("err = %v, want HTTP 400", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream must be disabled")
		}
		w.Write([]byte(`{"response":"local reply"}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", WithOllamaModel("qwen"))
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "local reply" {
		t.Errorf("Complete = %q", got)
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, "test", func(context.Context) (string, error) {
		calls++
		cancel()
		return "", &apiError{StatusCode: 503}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancel", calls)
	}
}
