package service

import (
	"fmt"
	"net/http"
	"strings"

	"jobchat-ai/internal/llm"
)

// Replies shown in the widget when no model reply is available. The widget
// renders these like any other bot message, so they must stay user-safe:
// no stack traces, no credentials, no raw upstream dumps beyond a snippet.
const (
	// PromptForDetailsReply answers requests that carried no usable message.
	PromptForDetailsReply = `Could you tell me a bit about the job you have in mind? For example: "Install 6 recessed lights in a 20x15 living room."`

	// GenericFailureReply covers unexpected local failures at the outer boundary.
	GenericFailureReply = "Sorry, something went wrong on our end. Please try again in a moment."

	fallbackReply  = "No reply from model."
	authReply      = "The assistant is misconfigured (the provider rejected our credentials). Please ask the site operator to check the API key."
	rateLimitReply = "We're handling a lot of requests at the moment. Please try again shortly."
	busyReply      = "The assistant's provider is busy right now. Please try again in a moment."
)

// maxErrorBodyChars bounds how much upstream body text reaches the widget.
const maxErrorBodyChars = 200

// degradeMessage maps a terminal upstream failure to a reply that is safe
// to show in the widget. Rate limits and server errors invite a retry; a
// rejected credential points at configuration; everything else surfaces a
// truncated snippet of the upstream body for troubleshooting.
func degradeMessage(apiErr *llm.APIError) string {
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return authReply
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return rateLimitReply
	case apiErr.StatusCode >= 500:
		return busyReply
	default:
		snippet := truncateRunes(strings.TrimSpace(apiErr.Body), maxErrorBodyChars)
		return fmt.Sprintf("Upstream error (%d): %s", apiErr.StatusCode, snippet)
	}
}

// truncateRunes cuts s to at most max runes.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
