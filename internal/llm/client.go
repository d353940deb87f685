package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	client *http.Client
	retry  RetryPolicy
	sleep  func(time.Duration)
}

// NewClient creates a new LLM client with the given retry policy.
func NewClient(baseURL, apiKey, model string, retry RetryPolicy) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   retry,
		sleep:   time.Sleep,
	}
}

// ChatCompletion sends the conversation to the provider and returns the
// parsed completion. Transient failures (429, 5xx, network errors) are
// retried with doubling backoff per the client's policy; other failing
// statuses return an *APIError immediately, and a network failure that
// outlives the budget is returned as an error.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, params ChatParams) (*Completion, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	model := params.Model
	if model == "" {
		model = c.Model
	}

	payload := ChatRequest{
		Model:       model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Messages:    messages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var (
		resp     *http.Response
		lastErr  error
		attempts int
	)
	for attempt := 0; ; attempt++ {
		attempts = attempt + 1
		resp, lastErr = c.send(ctx, url, body)

		statusCode := 0
		if lastErr == nil {
			statusCode = resp.StatusCode
			if statusCode >= 200 && statusCode < 300 {
				break
			}
		}

		decision := c.retry.Decide(attempt, statusCode)
		if !decision.Retry {
			break
		}
		if resp != nil {
			// Drain before closing so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}
		c.sleep(decision.Delay)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Attempts:   attempts,
		}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	completion := &Completion{
		Usage:    chatResp.Usage,
		Attempts: attempts,
	}
	if len(chatResp.Choices) > 0 {
		completion.Content = chatResp.Choices[0].Message.Content
	}
	return completion, nil
}

// send issues one POST to the chat completions endpoint. The request is
// rebuilt per attempt because the body reader cannot be replayed.
func (c *Client) send(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}
