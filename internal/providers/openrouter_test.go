package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func okOpenRouterResponse(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":    "test-id",
		"model": "meta-llama/llama-4-scout",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			var req openRouterRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "test-model" {
				t.Errorf("model = %q", req.Model)
			}
			okOpenRouterResponse(w, "Hello!")
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{UserMessage("Hello")},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success || result.Content != "Hello!" {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream down"))
				return
			}
			okOpenRouterResponse(w, "recovered")
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "recovered" || result.Attempts != 3 {
			t.Errorf("unexpected result: content=%q attempts=%d", result.Content, result.Attempts)
		}
	})

	t.Run("rate limit is returned without retrying", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"slow down"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rle.RetryAfter != 2*time.Second {
			t.Errorf("RetryAfter = %v, want 2s", rle.RetryAfter)
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single request, got %d", calls.Load())
		}
		if result.ErrorType != "rate_limit" {
			t.Errorf("ErrorType = %q, want rate_limit", result.ErrorType)
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "wrong",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})
		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single request, got %d", calls.Load())
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"x","model":"m","choices":[]}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		if err == nil {
			t.Fatal("expected error for empty choices")
		}
		if result.ErrorType != "empty_response" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
	})
}
