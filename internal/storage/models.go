package storage

import "time"

// Outcomes recorded for upstream chat calls.
const (
	OutcomeOK       = "ok"       // 2xx with a parsed reply
	OutcomeDegraded = "degraded" // terminal non-2xx mapped to a friendly reply
	OutcomeError    = "error"    // no upstream response (network, decode)
)

// UsageRecord is one accounting row for an upstream chat completion call.
// It holds token counts, latency, and outcome only; message content is
// never stored.
type UsageRecord struct {
	ID               string    `json:"id"`         // UUID, assigned on insert when empty
	CreatedAt        time.Time `json:"created_at"`
	Outcome          string    `json:"outcome"`
	StatusCode       int       `json:"status_code"` // upstream status, 0 when no response arrived
	Attempts         int       `json:"attempts"`
	LatencyMS        int64     `json:"latency_ms"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
}

// UsageSummary aggregates the ledger for the usage endpoint.
type UsageSummary struct {
	TotalRequests    int     `json:"total_requests"`
	OKCount          int     `json:"ok"`
	DegradedCount    int     `json:"degraded"`
	ErrorCount       int     `json:"error"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
}
