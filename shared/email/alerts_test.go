package email

import (
	"sync"
	"testing"
	"time"

	"github.com/like-mike/tenant-ai-gateway/shared/config"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
}

func (c *captureSender) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func waitForSends(t *testing.T, sender *captureSender, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sender.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sends = %d, want %d", sender.count(), want)
}

func TestNewAlertServiceDisabledWithoutConfig(t *testing.T) {
	if svc := NewAlertService(config.SMTPConfig{}); svc != nil {
		t.Error("no SMTP host should disable alerting")
	}
	if svc := NewAlertService(config.SMTPConfig{Host: "smtp.test"}); svc != nil {
		t.Error("missing recipient should disable alerting")
	}

	// A nil service must be safe to call.
	var svc *AlertService
	svc.NotifyQuotaExhausted(&models.Tenant{ID: "t1"}, "limit reached")
}

func TestNotifyDedupesPerTenantPerDay(t *testing.T) {
	sender := &captureSender{}
	svc := &AlertService{sender: sender, to: "ops@acme.test", lastSent: make(map[string]string)}
	tenant := &models.Tenant{ID: "t1", Name: "Acme", Plan: "business", MaxTokensPerMonth: 1000000}

	svc.NotifyQuotaExhausted(tenant, "organization daily token limit (33333) reached")
	svc.NotifyQuotaExhausted(tenant, "organization daily token limit (33333) reached")
	svc.NotifyQuotaExhausted(tenant, "organization daily token limit (33333) reached")

	waitForSends(t, sender, 1)
	time.Sleep(20 * time.Millisecond)
	if sender.count() != 1 {
		t.Errorf("sends = %d, repeated alerts should be deduplicated", sender.count())
	}
}

func TestNotifySeparateTenants(t *testing.T) {
	sender := &captureSender{}
	svc := &AlertService{sender: sender, to: "ops@acme.test", lastSent: make(map[string]string)}

	svc.NotifyQuotaExhausted(&models.Tenant{ID: "t1", Name: "Acme"}, "limit reached")
	svc.NotifyQuotaExhausted(&models.Tenant{ID: "t2", Name: "Globex"}, "limit reached")

	waitForSends(t, sender, 2)
}
