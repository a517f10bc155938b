package models

import (
	"time"
)

// Usage event outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// UsageEvent is one row of the append-only usage ledger. Every completion
// attempt produces exactly one event, whatever its outcome.
type UsageEvent struct {
	ID               string    `json:"id" db:"id"`
	TenantID         string    `json:"tenant_id" db:"tenant_id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Provider         string    `json:"provider" db:"provider"`
	Model            string    `json:"model" db:"model"`
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	Outcome          string    `json:"outcome" db:"outcome"`
	ErrorMessage     *string   `json:"error_message" db:"error_message"`
	FinishReason     *string   `json:"finish_reason" db:"finish_reason"`
	ProcessingTimeMS int64     `json:"processing_time_ms" db:"processing_time_ms"`
	RequestHash      string    `json:"request_hash" db:"request_hash"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// UsageStats is the aggregate view returned by the usage endpoint.
type UsageStats struct {
	TenantID       string `json:"tenant_id"`
	TokensToday    int64  `json:"tokens_today"`
	TokensMonth    int64  `json:"tokens_month"`
	MonthlyLimit   int64  `json:"monthly_limit"`
	DailyLimit     int64  `json:"daily_limit"`
	RemainingMonth int64  `json:"remaining_month"`
	RequestsToday  int64  `json:"requests_today"`
	FailuresToday  int64  `json:"failures_today"`
}

// DailyUsage is one date bucket of the per-tenant usage breakdown.
type DailyUsage struct {
	Date       string `json:"date"`
	TokensUsed int64  `json:"tokens_used"`
	Requests   int64  `json:"requests"`
}
