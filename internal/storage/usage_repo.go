package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UsageRepo provides methods for the usage accounting ledger.
type UsageRepo struct {
	db *sql.DB
}

// NewUsageRepo creates a new UsageRepo.
func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// RecordUsage inserts one accounting row. An empty ID is assigned a UUID
// and a zero timestamp defaults to now.
func (r *UsageRepo) RecordUsage(rec UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO usage_records
			(id, created_at, outcome, status_code, attempts, latency_ms,
			 model, prompt_tokens, completion_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.Outcome, rec.StatusCode, rec.Attempts,
		rec.LatencyMS, rec.Model, rec.PromptTokens, rec.CompletionTokens,
		rec.TotalTokens,
	)
	return err
}

// Recent returns the most recently recorded calls, newest first.
func (r *UsageRepo) Recent(limit int) ([]UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, created_at, outcome, status_code, attempts, latency_ms,
			model, prompt_tokens, completion_tokens, total_tokens
		FROM usage_records
		ORDER BY created_at DESC, id
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Outcome, &rec.StatusCode,
			&rec.Attempts, &rec.LatencyMS, &rec.Model, &rec.PromptTokens,
			&rec.CompletionTokens, &rec.TotalTokens,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Summarize aggregates every recorded call into one summary row.
func (r *UsageRepo) Summarize() (UsageSummary, error) {
	var s UsageSummary
	err := r.db.QueryRow(
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM usage_records`,
		OutcomeOK, OutcomeDegraded, OutcomeError,
	).Scan(
		&s.TotalRequests, &s.OKCount, &s.DegradedCount, &s.ErrorCount,
		&s.PromptTokens, &s.CompletionTokens, &s.TotalTokens, &s.AvgLatencyMS,
	)
	if err != nil {
		return UsageSummary{}, err
	}
	return s, nil
}
