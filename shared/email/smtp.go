package email

import (
	"fmt"
	"net/smtp"

	"github.com/like-mike/tenant-ai-gateway/shared/config"
)

// Message represents an email to be sent.
type Message struct {
	To      string
	Subject string
	Body    string
}

// SMTPClient sends mail through a STARTTLS-capable SMTP server.
type SMTPClient struct {
	cfg config.SMTPConfig
}

func NewSMTPClient(cfg config.SMTPConfig) *SMTPClient {
	return &SMTPClient{cfg: cfg}
}

// Send delivers one message using plain auth over STARTTLS.
func (c *SMTPClient) Send(msg Message) error {
	body := fmt.Sprintf("From: %s <%s>\nTo: %s\nSubject: %s\n\n%s",
		c.cfg.FromName, c.cfg.FromEmail, msg.To, msg.Subject, msg.Body)

	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	if err := smtp.SendMail(addr, auth, c.cfg.FromEmail, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
