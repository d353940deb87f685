package llm

import "fmt"

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// Temperature controls the randomness of the output.
	Temperature float64

	// MaxTokens caps the length of the generated reply.
	MaxTokens int
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is the provider's token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Completion is the parsed outcome of a successful chat completion call.
// Content is empty when the provider's payload carried no recognizable
// reply; callers decide what to substitute.
type Completion struct {
	Content  string
	Usage    *Usage
	Attempts int
}

// APIError is a terminal non-2xx response from the provider, returned after
// the retry budget is spent (or immediately for non-retriable statuses).
// Body holds the raw response text for classification and troubleshooting.
type APIError struct {
	StatusCode int
	Body       string
	Attempts   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api status %d: %s", e.StatusCode, e.Body)
}
