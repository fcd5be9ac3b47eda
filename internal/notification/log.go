package notification

import (
	"context"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
)

// LogDispatcher writes notifications to the log instead of sending them.
// Used in development and whenever email is disabled.
type LogDispatcher struct {
	log *logger.Logger
}

// NewLogDispatcher creates a logging dispatcher.
func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Dispatch logs the message and succeeds.
func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.log.Info("notification (log only)", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ Dispatcher = (*LogDispatcher)(nil)

// New picks the SMTP dispatcher when email is enabled, the logging one
// otherwise.
func New(cfg config.EmailConfig, log *logger.Logger) Dispatcher {
	if cfg.GetEmailEnabled() {
		return NewSMTPDispatcher(cfg, log)
	}
	return NewLogDispatcher(log)
}
