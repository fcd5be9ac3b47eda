package notification

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
)

// SMTPDispatcher sends notifications over SMTP using go-mail.
type SMTPDispatcher struct {
	cfg config.EmailConfig
	log *logger.Logger
}

// NewSMTPDispatcher creates an SMTP-backed dispatcher.
func NewSMTPDispatcher(cfg config.EmailConfig, log *logger.Logger) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg, log: log}
}

// Dispatch sends one message. The SMTP connection is per call; the volume
// here is one message per routed offer, not a campaign sender.
func (d *SMTPDispatcher) Dispatch(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.FromFormat(d.cfg.GetEmailFromName(), d.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(d.cfg.GetSMTPHost(),
		gomail.WithPort(d.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(d.cfg.GetSMTPUsername()),
		gomail.WithPassword(d.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	d.log.Info("notification sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ Dispatcher = (*SMTPDispatcher)(nil)
