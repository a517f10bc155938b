package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// InsertUsageEvent appends one row to the usage ledger. The ledger is
// append-only: nothing in this package updates or deletes usage_events.
func InsertUsageEvent(ctx context.Context, db *sql.DB, ev models.UsageEvent) error {
	query := `
		INSERT INTO usage_events (
			id, tenant_id, user_id, provider, model,
			prompt_tokens, completion_tokens, total_tokens,
			outcome, error_message, finish_reason, processing_time_ms, request_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := db.ExecContext(ctx, query,
		ev.ID, ev.TenantID, ev.UserID, ev.Provider, ev.Model,
		ev.PromptTokens, ev.CompletionTokens, ev.TotalTokens,
		ev.Outcome, ev.ErrorMessage, ev.FinishReason, ev.ProcessingTimeMS, ev.RequestHash, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// UserTokensToday sums a user's successful token consumption for the
// current UTC day, scoped to the tenant.
func UserTokensToday(ctx context.Context, db *sql.DB, tenantID, userID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_tokens), 0)
		FROM usage_events
		WHERE tenant_id = $1 AND user_id = $2
		  AND outcome = 'success'
		  AND created_at >= DATE_TRUNC('day', NOW() AT TIME ZONE 'UTC')`

	var total int64
	err := db.QueryRowContext(ctx, query, tenantID, userID).Scan(&total)
	return total, err
}

// TenantTokensToday sums a tenant's successful token consumption for the
// current UTC day.
func TenantTokensToday(ctx context.Context, db *sql.DB, tenantID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_tokens), 0)
		FROM usage_events
		WHERE tenant_id = $1
		  AND outcome = 'success'
		  AND created_at >= DATE_TRUNC('day', NOW() AT TIME ZONE 'UTC')`

	var total int64
	err := db.QueryRowContext(ctx, query, tenantID).Scan(&total)
	return total, err
}

// TenantTokensMonth sums a tenant's successful token consumption over the
// trailing 30 days (rolling window, not calendar month).
func TenantTokensMonth(ctx context.Context, db *sql.DB, tenantID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_tokens), 0)
		FROM usage_events
		WHERE tenant_id = $1
		  AND outcome = 'success'
		  AND created_at >= NOW() - INTERVAL '30 days'`

	var total int64
	err := db.QueryRowContext(ctx, query, tenantID).Scan(&total)
	return total, err
}

// TenantRequestCounts returns today's attempt and failure counts for the
// usage stats endpoint.
func TenantRequestCounts(ctx context.Context, db *sql.DB, tenantID string) (requests, failures int64, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(CASE WHEN outcome <> 'success' THEN 1 END)
		FROM usage_events
		WHERE tenant_id = $1
		  AND created_at >= DATE_TRUNC('day', NOW() AT TIME ZONE 'UTC')`

	err = db.QueryRowContext(ctx, query, tenantID).Scan(&requests, &failures)
	return requests, failures, err
}

// TenantUsageBreakdown returns a per-day token and request breakdown over
// the last N days, oldest first. Used for usage charts.
func TenantUsageBreakdown(ctx context.Context, db *sql.DB, tenantID string, days int) ([]models.DailyUsage, error) {
	if days <= 0 {
		days = 7
	}

	query := `
		SELECT DATE(created_at)::text AS date,
		       COALESCE(SUM(total_tokens), 0) AS tokens_used,
		       COUNT(*) AS requests
		FROM usage_events
		WHERE tenant_id = $1
		  AND outcome = 'success'
		  AND created_at >= NOW() - ($2 || ' days')::interval
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)`

	rows, err := db.QueryContext(ctx, query, tenantID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []models.DailyUsage
	for rows.Next() {
		var d models.DailyUsage
		if err := rows.Scan(&d.Date, &d.TokensUsed, &d.Requests); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, d)
	}
	return breakdown, rows.Err()
}

// Ledger bundles the ledger operations behind interfaces so the gateway
// core can be tested without a live database.
type Ledger struct {
	DB *sql.DB
}

func (l *Ledger) Insert(ctx context.Context, ev models.UsageEvent) error {
	return InsertUsageEvent(ctx, l.DB, ev)
}

func (l *Ledger) UserTokensToday(ctx context.Context, tenantID, userID string) (int64, error) {
	return UserTokensToday(ctx, l.DB, tenantID, userID)
}

func (l *Ledger) TenantTokensToday(ctx context.Context, tenantID string) (int64, error) {
	return TenantTokensToday(ctx, l.DB, tenantID)
}

func (l *Ledger) TenantTokensMonth(ctx context.Context, tenantID string) (int64, error) {
	return TenantTokensMonth(ctx, l.DB, tenantID)
}
