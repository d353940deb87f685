package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"jobchat-ai/internal/contextutil"
	"jobchat-ai/internal/llm"
	"jobchat-ai/internal/service"
)

// maxBodyBytes caps the widget request body at 1 MiB.
const maxBodyBytes = 1 << 20

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
	markdown    goldmark.Markdown
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		// Replies come from the model and are untrusted, so raw HTML in the
		// markdown stays escaped (no WithUnsafe).
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
				extension.TaskList,
				extension.Strikethrough,
				extension.Linkify,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// ChatRequest represents the HTTP request payload for chat. Message is
// decoded as any so a missing or non-string value can be answered with
// guidance instead of an error status.
type ChatRequest struct {
	Message any `json:"message"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply string     `json:"reply"`
	HTML  string     `json:"html,omitempty"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for chat. Every POST gets a 200 with a
// reply the widget can render; only a non-POST method produces an error
// status. Failures upstream have already been folded into the reply text
// by the service layer.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "unreadable request body", "error", err)
		h.writeReply(w, ctx, service.ChatResult{Reply: service.PromptForDetailsReply, Degraded: true})
		return
	}

	message, ok := req.Message.(string)
	if !ok {
		logger.WarnContext(ctx, "missing or non-string message field")
		h.writeReply(w, ctx, service.ChatResult{Reply: service.PromptForDetailsReply, Degraded: true})
		return
	}

	result, err := h.chatService.ProcessChat(ctx, service.ChatRequest{Message: message})
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			logger.WarnContext(ctx, "invalid chat message", "field", validationErr.Field)
			h.writeReply(w, ctx, service.ChatResult{Reply: service.PromptForDetailsReply, Degraded: true})
			return
		}
		logger.ErrorContext(ctx, "failed to process chat request", "error", err)
		h.writeReply(w, ctx, service.ChatResult{Reply: service.GenericFailureReply, Degraded: true})
		return
	}

	h.writeReply(w, ctx, result)
}

// writeReply sends the widget contract: always 200, reply text plus a
// rendered HTML variant when the text came from the model.
func (h *ChatHandler) writeReply(w http.ResponseWriter, ctx context.Context, result service.ChatResult) {
	logger := contextutil.LoggerFromContext(ctx)

	resp := ChatResponse{
		Reply: result.Reply,
		Usage: result.Usage,
	}
	if !result.Degraded {
		html, err := h.renderMarkdown(result.Reply)
		if err != nil {
			logger.WarnContext(ctx, "failed to render reply markdown", "error", err)
		} else {
			resp.HTML = html
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// renderMarkdown converts a model reply to HTML for the widget.
func (h *ChatHandler) renderMarkdown(reply string) (string, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(reply), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
