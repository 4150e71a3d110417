package notifications

import (
	"context"

	"github.com/safarides/safar-backend/pkg/config"
	"github.com/safarides/safar-backend/pkg/logger"
	"go.uber.org/zap"
)

// SMSSender delivers a text message to a phone number. Delivery failures are
// the caller's to handle; senders do not retry.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// NewSMSSender selects the Twilio sender when credentials are configured and
// the log-only sender otherwise, which is the development behavior.
func NewSMSSender(cfg config.SMSConfig) SMSSender {
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		return NewTwilioSender(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber)
	}
	logger.Warn("twilio not configured, SMS messages will be logged only")
	return &LogSender{}
}

// LogSender writes messages to the application log instead of sending them.
type LogSender struct{}

func (s *LogSender) SendSMS(ctx context.Context, to, body string) error {
	logger.InfoContext(ctx, "sms (log-only sender)",
		zap.String("to", to),
		zap.String("body", body),
	)
	return nil
}
