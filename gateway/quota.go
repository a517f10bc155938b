package gateway

import (
	"context"
	"fmt"
	"log"

	"github.com/like-mike/tenant-ai-gateway/metrics"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// UsageReader is the ledger read surface the quota guard depends on.
type UsageReader interface {
	UserTokensToday(ctx context.Context, tenantID, userID string) (int64, error)
	TenantTokensToday(ctx context.Context, tenantID string) (int64, error)
	TenantTokensMonth(ctx context.Context, tenantID string) (int64, error)
}

// FrequencyLimiter caps request frequency independently of token budgets.
// Implemented by the redis limiter; nil disables the check.
type FrequencyLimiter interface {
	Allow(ctx context.Context, tenantID string, limit int) (bool, error)
}

// AlertNotifier is told when a tenant's own budget blocks a request, so an
// administrator can be emailed. Implementations must not block.
type AlertNotifier interface {
	NotifyQuotaExhausted(tenant *models.Tenant, reason string)
}

// QuotaGuard is the pre-flight budget check. It never returns an error to
// the completion path: ledger read failures are logged and counted, and the
// request is allowed through.
type QuotaGuard struct {
	usage           UsageReader
	freq            FrequencyLimiter
	alerts          AlertNotifier
	plans           *models.PlanCatalog
	userDailyLimit  int64
	requestsPerHour int
}

func NewQuotaGuard(usage UsageReader, userDailyLimit int64) *QuotaGuard {
	return &QuotaGuard{usage: usage, userDailyLimit: userDailyLimit}
}

// WithPlanCatalog supplies fallback limits for tenants whose row carries
// no monthly limit of its own.
func (g *QuotaGuard) WithPlanCatalog(plans *models.PlanCatalog) *QuotaGuard {
	g.plans = plans
	return g
}

// monthlyLimit prefers the tenant row; the plan catalog fills the gap.
func (g *QuotaGuard) monthlyLimit(tenant *models.Tenant) int64 {
	if tenant.MaxTokensPerMonth > 0 {
		return tenant.MaxTokensPerMonth
	}
	if g.plans != nil {
		return g.plans.Limits(tenant.Plan).MaxTokensPerMonth
	}
	return 0
}

// WithFrequencyLimiter enables the per-tenant requests/hour cap.
func (g *QuotaGuard) WithFrequencyLimiter(freq FrequencyLimiter, requestsPerHour int) *QuotaGuard {
	g.freq = freq
	g.requestsPerHour = requestsPerHour
	return g
}

// WithAlerts wires quota exhaustion notifications.
func (g *QuotaGuard) WithAlerts(alerts AlertNotifier) *QuotaGuard {
	g.alerts = alerts
	return g
}

// Check decides whether a completion attempt may proceed. Administrators
// bypass every limit. The tenant's daily budget is the monthly plan limit
// divided by 30, computed independently of the monthly ledger sum.
func (g *QuotaGuard) Check(ctx context.Context, user *models.User, tenant *models.Tenant) (bool, string) {
	if user.IsAdmin {
		return true, "OK"
	}

	if g.freq != nil && g.requestsPerHour > 0 {
		ok, err := g.freq.Allow(ctx, tenant.ID, g.requestsPerHour)
		if err != nil {
			log.Printf("Frequency limiter unavailable for tenant %s: %v", tenant.ID, err)
		} else if !ok {
			metrics.QuotaRejectionsTotal.WithLabelValues("frequency").Inc()
			return false, fmt.Sprintf("hourly request limit (%d) reached", g.requestsPerHour)
		}
	}

	userTokens, err := g.usage.UserTokensToday(ctx, tenant.ID, user.ID)
	if err != nil {
		log.Printf("Failed to read user token usage for %s: %v", user.ID, err)
		metrics.QuotaCheckFailuresTotal.Inc()
		return true, "OK"
	}
	if userTokens >= g.userDailyLimit {
		metrics.QuotaRejectionsTotal.WithLabelValues("user_daily").Inc()
		return false, fmt.Sprintf("personal daily token limit (%d) reached", g.userDailyLimit)
	}

	tenantTokens, err := g.usage.TenantTokensToday(ctx, tenant.ID)
	if err != nil {
		log.Printf("Failed to read tenant token usage for %s: %v", tenant.ID, err)
		metrics.QuotaCheckFailuresTotal.Inc()
		return true, "OK"
	}

	// Deliberate simplification carried over from the original system:
	// monthly limit prorated by a flat 30 days.
	monthlyLimit := g.monthlyLimit(tenant)
	tenantDailyLimit := monthlyLimit / 30
	if tenantDailyLimit > 0 && tenantTokens >= tenantDailyLimit {
		metrics.QuotaRejectionsTotal.WithLabelValues("tenant_daily").Inc()
		reason := fmt.Sprintf("organization daily token limit (%d) reached", tenantDailyLimit)
		if g.alerts != nil {
			g.alerts.NotifyQuotaExhausted(tenant, reason)
		}
		return false, reason
	}

	monthTokens, err := g.usage.TenantTokensMonth(ctx, tenant.ID)
	if err != nil {
		log.Printf("Failed to read tenant monthly usage for %s: %v", tenant.ID, err)
		metrics.QuotaCheckFailuresTotal.Inc()
		return true, "OK"
	}
	if monthlyLimit > 0 && monthTokens >= monthlyLimit {
		metrics.QuotaRejectionsTotal.WithLabelValues("tenant_monthly").Inc()
		reason := fmt.Sprintf("organization monthly token limit (%d) reached", monthlyLimit)
		if g.alerts != nil {
			g.alerts.NotifyQuotaExhausted(tenant, reason)
		}
		return false, reason
	}

	return true, "OK"
}
