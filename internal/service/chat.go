package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks jobchat-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_usage_recorder.go -package=mocks jobchat-ai/internal/service UsageRecorder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks jobchat-ai/internal/service ChatService

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"jobchat-ai/internal/contextutil"
	"jobchat-ai/internal/llm"
	"jobchat-ai/internal/storage"
)

// systemPrompt frames the assistant for incoming job descriptions.
const systemPrompt = `You are the assistant on a home improvement contractor's website. Visitors describe jobs they want done, for example "Install 6 recessed lights in a 20x15 living room."

Help the visitor scope their job: ask one or two clarifying questions when key details are missing, and explain briefly what the work usually involves.

Rules:
- Keep replies under 120 words.
- Use plain language, with short paragraphs or bullet lists.
- Never quote a firm price or date; only an on-site visit can confirm those.
- If the request is not about home improvement work, politely steer back to the job description.`

// maxMessageChars bounds the user message forwarded upstream.
const maxMessageChars = 4000

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatCompletion sends a conversation to the model and returns the parsed reply.
	ChatCompletion(ctx context.Context, messages []llm.Message, params llm.ChatParams) (*llm.Completion, error)
}

// UsageRecorder persists per-call accounting for the usage endpoint.
type UsageRecorder interface {
	RecordUsage(rec storage.UsageRecord) error
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message string
}

// ChatResult is the outcome handed to the HTTP layer. A degraded result
// carries a user-safe explanation instead of a model reply; the widget
// receives both the same way.
type ChatResult struct {
	Reply    string
	Usage    *llm.Usage
	Degraded bool
}

// ChatService provides chat functionality.
type ChatService interface {
	// ProcessChat runs one message through the upstream model.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// chatService implements ChatService.
type chatService struct {
	llmClient LLMClient
	usage     UsageRecorder
	params    llm.ChatParams
}

// NewChatService creates a new ChatService. usage may be nil, in which case
// no accounting is written.
func NewChatService(llmClient LLMClient, usage UsageRecorder, params llm.ChatParams) ChatService {
	return &chatService{
		llmClient: llmClient,
		usage:     usage,
		params:    params,
	}
}

// ProcessChat validates and truncates the message, forwards it with the
// fixed system instruction, and maps terminal upstream failures to degraded
// results. Only unexpected failures (network exhaustion, decode errors)
// come back as errors for the handler boundary to absorb.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResult{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}
	message = truncateRunes(message, maxMessageChars)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: message},
	}

	start := time.Now()
	completion, err := s.llmClient.ChatCompletion(ctx, messages, s.params)
	latency := time.Since(start)

	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			logger.WarnContext(ctx, "upstream call degraded",
				"status", apiErr.StatusCode, "attempts", apiErr.Attempts)
			s.recordUsage(ctx, storage.UsageRecord{
				Outcome:    storage.OutcomeDegraded,
				StatusCode: apiErr.StatusCode,
				Attempts:   apiErr.Attempts,
				LatencyMS:  latency.Milliseconds(),
				Model:      s.params.Model,
			})
			return ChatResult{Reply: degradeMessage(apiErr), Degraded: true}, nil
		}

		logger.ErrorContext(ctx, "upstream call failed", "error", err)
		s.recordUsage(ctx, storage.UsageRecord{
			Outcome:   storage.OutcomeError,
			LatencyMS: latency.Milliseconds(),
			Model:     s.params.Model,
		})
		return ChatResult{}, WrapError(err, "chat completion failed")
	}

	reply := completion.Content
	if reply == "" {
		reply = fallbackReply
	}

	rec := storage.UsageRecord{
		Outcome:    storage.OutcomeOK,
		StatusCode: http.StatusOK,
		Attempts:   completion.Attempts,
		LatencyMS:  latency.Milliseconds(),
		Model:      s.params.Model,
	}
	if completion.Usage != nil {
		rec.PromptTokens = completion.Usage.PromptTokens
		rec.CompletionTokens = completion.Usage.CompletionTokens
		rec.TotalTokens = completion.Usage.TotalTokens
	}
	s.recordUsage(ctx, rec)

	logger.InfoContext(ctx, "chat request processed",
		"message_length", len(message), "reply_length", len(reply),
		"attempts", completion.Attempts)
	return ChatResult{Reply: reply, Usage: completion.Usage}, nil
}

// recordUsage writes one accounting row; ledger failures are logged, never
// surfaced to the widget.
func (s *chatService) recordUsage(ctx context.Context, rec storage.UsageRecord) {
	if s.usage == nil {
		return
	}
	if err := s.usage.RecordUsage(rec); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record usage", "error", err)
	}
}
