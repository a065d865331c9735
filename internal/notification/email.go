package notification

import (
	"NetSentry/internal/config"
	"NetSentry/internal/model"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailNotifier implements the Notifier interface for sending alert emails.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth}
}

// Name implements model.Notifier.
func (n *EmailNotifier) Name() string { return "email" }

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(alert *model.Alert) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")

	subject := fmt.Sprintf("NetSentry Alert [%s] %s", strings.ToUpper(string(alert.Severity)), alert.ID)
	body := fmt.Sprintf("Alert: %s\r\nSeverity: %s\r\nAnomaly score: %.4f\r\nThreat score: %.1f\r\nTime: %s\r\n\r\n%s\r\n",
		alert.Description, alert.Severity, alert.AnomalyScore, alert.ThreatScore,
		alert.Timestamp.Format("2006-01-02 15:04:05"), alert.Observation.Snapshot())

	// Construct the email message.
	msg := []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body)

	// Send the email.
	if err := smtp.SendMail(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
