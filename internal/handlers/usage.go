package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_usage_reader.go -package=mocks jobchat-ai/internal/handlers UsageReader

import (
	"encoding/json"
	"net/http"
	"strconv"

	"jobchat-ai/internal/contextutil"
	"jobchat-ai/internal/storage"
)

const (
	defaultUsageLimit = 20
	maxUsageLimit     = 100
)

// UsageReader provides read access to the usage ledger.
// This interface is defined from the handler's perspective (consumer-first).
type UsageReader interface {
	Recent(limit int) ([]storage.UsageRecord, error)
	Summarize() (storage.UsageSummary, error)
}

// UsageHandler handles HTTP requests for the usage report.
type UsageHandler struct {
	usage UsageReader
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{
		usage: usage,
	}
}

// UsageResponse represents the usage report payload.
type UsageResponse struct {
	Summary storage.UsageSummary  `json:"summary"`
	Recent  []storage.UsageRecord `json:"recent"`
}

// ServeHTTP handles HTTP requests for the usage report.
func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := defaultUsageLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			logger.WarnContext(ctx, "invalid limit parameter", "limit", limitStr)
			writeError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}
	if limit > maxUsageLimit {
		limit = maxUsageLimit
	}

	summary, err := h.usage.Summarize()
	if err != nil {
		logger.ErrorContext(ctx, "failed to summarize usage", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load usage report")
		return
	}

	recent, err := h.usage.Recent(limit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load recent usage", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load usage report")
		return
	}
	if recent == nil {
		recent = []storage.UsageRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(UsageResponse{
		Summary: summary,
		Recent:  recent,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode usage response", "error", err)
	}
}
