package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// recordSleeps replaces the client's sleep with one that records backoff
// delays instead of waiting.
func recordSleeps(c *Client) *[]time.Duration {
	sleeps := &[]time.Duration{}
	c.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return sleeps
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8081", "test-key", "test-model", DefaultRetryPolicy(DefaultMaxRetries))
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:8081", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
	if client.retry.MaxRetries != DefaultMaxRetries {
		t.Errorf("NewClient() retry budget = %v, want %v", client.retry.MaxRetries, DefaultMaxRetries)
	}
}

func TestClient_ChatCompletion(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "Install 6 recessed lights"},
	}
	params := ChatParams{Model: "test-model", Temperature: 0.3, MaxTokens: 350}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("Authorization"), "Bearer test-key") {
			t.Error("missing Authorization header")
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %v, want test-model", req.Model)
		}
		if req.Temperature != 0.3 {
			t.Errorf("request temperature = %v, want 0.3", req.Temperature)
		}
		if req.MaxTokens != 350 {
			t.Errorf("request max_tokens = %v, want 350", req.MaxTokens)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}

		resp := ChatResponse{
			ID:     "test-id",
			Object: "chat.completion",
			Choices: []ChatChoice{
				{
					Index:        0,
					Message:      Message{Role: "assistant", Content: "Happy to help with that."},
					FinishReason: "stop",
				},
			},
			Usage: &Usage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(DefaultMaxRetries))
	sleeps := recordSleeps(client)

	completion, err := client.ChatCompletion(context.Background(), messages, params)
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if completion.Content != "Happy to help with that." {
		t.Errorf("ChatCompletion() content = %v, want Happy to help with that.", completion.Content)
	}
	if completion.Attempts != 1 {
		t.Errorf("ChatCompletion() attempts = %v, want 1", completion.Attempts)
	}
	if completion.Usage == nil || completion.Usage.TotalTokens != 42 {
		t.Errorf("ChatCompletion() usage = %+v, want total 42", completion.Usage)
	}
	if len(*sleeps) != 0 {
		t.Errorf("ChatCompletion() slept %v, want no sleeps on success", *sleeps)
	}
}

func TestClient_ChatCompletion_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test

		if req.Model != "fallback-model" {
			t.Errorf("expected model fallback-model, got %s", req.Model)
		}

		resp := ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "Response"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "fallback-model", DefaultRetryPolicy(0))

	// Empty model should use the client default
	completion, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if completion.Content != "Response" {
		t.Errorf("ChatCompletion() content = %v, want Response", completion.Content)
	}
}

func TestClient_ChatCompletion_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		resp := ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "Recovered"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(2))
	sleeps := recordSleeps(client)

	completion, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if completion.Content != "Recovered" {
		t.Errorf("ChatCompletion() content = %v, want Recovered", completion.Content)
	}
	if completion.Attempts != 2 {
		t.Errorf("ChatCompletion() attempts = %v, want 2", completion.Attempts)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %v, want 2", got)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 600*time.Millisecond {
		t.Errorf("recorded sleeps = %v, want [600ms]", *sleeps)
	}
}

func TestClient_ChatCompletion_BackoffDoubles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		resp := ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "Third time lucky"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(2))
	sleeps := recordSleeps(client)

	completion, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if completion.Attempts != 3 {
		t.Errorf("ChatCompletion() attempts = %v, want 3", completion.Attempts)
	}
	want := []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("recorded sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestClient_ChatCompletion_NoRetryOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", "test-model", DefaultRetryPolicy(2))
	sleeps := recordSleeps(client)

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err == nil {
		t.Fatal("ChatCompletion() expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ChatCompletion() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("APIError status = %v, want 401", apiErr.StatusCode)
	}
	if apiErr.Attempts != 1 {
		t.Errorf("APIError attempts = %v, want 1", apiErr.Attempts)
	}
	if !strings.Contains(apiErr.Body, "invalid api key") {
		t.Errorf("APIError body = %q, want upstream body", apiErr.Body)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %v, want 1 (no retry)", got)
	}
	if len(*sleeps) != 0 {
		t.Errorf("recorded sleeps = %v, want none", *sleeps)
	}
}

func TestClient_ChatCompletion_ExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("still down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(2))
	sleeps := recordSleeps(client)

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err == nil {
		t.Fatal("ChatCompletion() expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ChatCompletion() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("APIError status = %v, want 500", apiErr.StatusCode)
	}
	if apiErr.Attempts != 3 {
		t.Errorf("APIError attempts = %v, want 3", apiErr.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %v, want maxRetries+1 = 3", got)
	}
	if len(*sleeps) != 2 {
		t.Errorf("recorded sleeps = %v, want two backoffs", *sleeps)
	}
}

func TestClient_ChatCompletion_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ChatResponse{
			ID:      "test-id",
			Object:  "chat.completion",
			Choices: []ChatChoice{},
			Usage:   &Usage{TotalTokens: 8},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(0))

	completion, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if completion.Content != "" {
		t.Errorf("ChatCompletion() content = %q, want empty for missing choices", completion.Content)
	}
	if completion.Usage == nil || completion.Usage.TotalTokens != 8 {
		t.Errorf("ChatCompletion() usage = %+v, want passthrough", completion.Usage)
	}
}

func TestClient_ChatCompletion_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(0))

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err == nil {
		t.Fatal("ChatCompletion() expected decode error, got nil")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("ChatCompletion() error = %v, want plain decode error not *APIError", err)
	}
}

func TestClient_ChatCompletion_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Every attempt fails at the transport level

	client := NewClient(server.URL, "test-key", "test-model", DefaultRetryPolicy(2))
	sleeps := recordSleeps(client)

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err == nil {
		t.Fatal("ChatCompletion() expected error, got nil")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("ChatCompletion() error = %v, want transport error not *APIError", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("ChatCompletion() error = %v, want attempt count in message", err)
	}
	want := []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("recorded sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}
