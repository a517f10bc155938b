package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

type fakeUsageReader struct {
	userToday   int64
	tenantToday int64
	tenantMonth int64
	err         error
}

func (f *fakeUsageReader) UserTokensToday(ctx context.Context, tenantID, userID string) (int64, error) {
	return f.userToday, f.err
}

func (f *fakeUsageReader) TenantTokensToday(ctx context.Context, tenantID string) (int64, error) {
	return f.tenantToday, f.err
}

func (f *fakeUsageReader) TenantTokensMonth(ctx context.Context, tenantID string) (int64, error) {
	return f.tenantMonth, f.err
}

type fakeFreqLimiter struct {
	allow bool
	calls int
}

func (f *fakeFreqLimiter) Allow(ctx context.Context, tenantID string, limit int) (bool, error) {
	f.calls++
	return f.allow, nil
}

type fakeAlerts struct {
	notified []string
}

func (f *fakeAlerts) NotifyQuotaExhausted(tenant *models.Tenant, reason string) {
	f.notified = append(f.notified, reason)
}

func testTenant(monthly int64) *models.Tenant {
	return &models.Tenant{ID: "t1", Name: "Acme", Plan: "business", MaxTokensPerMonth: monthly, IsActive: true}
}

func TestQuotaAdminBypassesEverything(t *testing.T) {
	reader := &fakeUsageReader{userToday: 1 << 40, tenantToday: 1 << 40, tenantMonth: 1 << 40}
	freq := &fakeFreqLimiter{allow: false}
	guard := NewQuotaGuard(reader, 10000).WithFrequencyLimiter(freq, 100)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1", IsAdmin: true}, testTenant(100000))
	if !ok {
		t.Fatalf("admin blocked: %s", reason)
	}
	if freq.calls != 0 {
		t.Error("frequency limiter consulted for admin")
	}
}

func TestQuotaUserDailyLimit(t *testing.T) {
	reader := &fakeUsageReader{userToday: 10000}
	guard := NewQuotaGuard(reader, 10000)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000))
	if ok {
		t.Fatal("user at daily limit should be blocked")
	}
	if !strings.Contains(reason, "personal daily") {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestQuotaUserJustUnderLimitPasses(t *testing.T) {
	reader := &fakeUsageReader{userToday: 9999}
	guard := NewQuotaGuard(reader, 10000)

	if ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000)); !ok {
		t.Fatalf("blocked under limit: %s", reason)
	}
}

func TestQuotaTenantDailyProration(t *testing.T) {
	// 100000/month prorates to 3333/day.
	reader := &fakeUsageReader{tenantToday: 3333}
	alerts := &fakeAlerts{}
	guard := NewQuotaGuard(reader, 10000).WithAlerts(alerts)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000))
	if ok {
		t.Fatal("tenant at prorated daily limit should be blocked")
	}
	if !strings.Contains(reason, "3333") {
		t.Errorf("reason should name the prorated limit: %s", reason)
	}
	if len(alerts.notified) != 1 {
		t.Errorf("expected one alert, got %d", len(alerts.notified))
	}
}

func TestQuotaMonthlyIndependentOfDaily(t *testing.T) {
	// Under the daily proration but over the monthly total.
	reader := &fakeUsageReader{tenantToday: 100, tenantMonth: 100000}
	guard := NewQuotaGuard(reader, 10000)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000))
	if ok {
		t.Fatal("tenant over monthly limit should be blocked")
	}
	if !strings.Contains(reason, "monthly") {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestQuotaPlanCatalogFallback(t *testing.T) {
	catalog := &models.PlanCatalog{
		Plans:       map[string]models.Plan{"business": {MaxTokensPerMonth: 60000}},
		DefaultPlan: "business",
	}
	// Tenant row has no limit of its own; 60000/30 = 2000/day.
	reader := &fakeUsageReader{tenantToday: 2000}
	guard := NewQuotaGuard(reader, 10000).WithPlanCatalog(catalog)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(0))
	if ok {
		t.Fatal("catalog limit should apply when tenant row has none")
	}
	if !strings.Contains(reason, "2000") {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestQuotaFailsOpenOnLedgerError(t *testing.T) {
	reader := &fakeUsageReader{err: errors.New("connection refused")}
	guard := NewQuotaGuard(reader, 10000)

	if ok, _ := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000)); !ok {
		t.Fatal("ledger failure must not block completions")
	}
}

func TestQuotaFrequencyLimit(t *testing.T) {
	reader := &fakeUsageReader{}
	freq := &fakeFreqLimiter{allow: false}
	guard := NewQuotaGuard(reader, 10000).WithFrequencyLimiter(freq, 50)

	ok, reason := guard.Check(context.Background(), &models.User{ID: "u1"}, testTenant(100000))
	if ok {
		t.Fatal("frequency limiter denial should block")
	}
	if !strings.Contains(reason, "hourly") {
		t.Errorf("unexpected reason: %s", reason)
	}
}
