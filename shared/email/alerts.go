package email

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/like-mike/tenant-ai-gateway/shared/config"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// Sender is the delivery surface AlertService depends on.
type Sender interface {
	Send(msg Message) error
}

// AlertService emails an administrator when a tenant's token budget blocks
// requests. Alerts are deduplicated to one per tenant per UTC day so a
// blocked tenant hammering the API does not flood the inbox.
type AlertService struct {
	sender Sender
	to     string

	mu       sync.Mutex
	lastSent map[string]string // tenant id -> date of last alert
}

// NewAlertService returns nil when alerting is not configured; callers
// treat a nil service as disabled.
func NewAlertService(cfg config.SMTPConfig) *AlertService {
	if cfg.Host == "" || cfg.AdminTo == "" {
		return nil
	}
	return &AlertService{
		sender:   NewSMTPClient(cfg),
		to:       cfg.AdminTo,
		lastSent: make(map[string]string),
	}
}

// NotifyQuotaExhausted implements gateway.AlertNotifier. Delivery happens
// in the background; the quota check never waits on SMTP.
func (a *AlertService) NotifyQuotaExhausted(tenant *models.Tenant, reason string) {
	if a == nil {
		return
	}

	today := time.Now().UTC().Format("2006-01-02")

	a.mu.Lock()
	if a.lastSent[tenant.ID] == today {
		a.mu.Unlock()
		return
	}
	a.lastSent[tenant.ID] = today
	a.mu.Unlock()

	msg := Message{
		To:      a.to,
		Subject: fmt.Sprintf("Token quota exhausted for tenant %s", tenant.Name),
		Body: fmt.Sprintf(
			"Tenant %s (%s) has hit its AI token budget.\n\nReason: %s\nPlan: %s\nMonthly limit: %d tokens\n\nRequests from this tenant are being rejected until the budget resets or the plan is upgraded.",
			tenant.Name, tenant.ID, reason, tenant.Plan, tenant.MaxTokensPerMonth),
	}

	go func() {
		if err := a.sender.Send(msg); err != nil {
			log.Printf("Failed to send quota alert for tenant %s: %v", tenant.ID, err)
		}
	}()
}
