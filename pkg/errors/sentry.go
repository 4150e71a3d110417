package errors

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds error-tracking setup.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	ServerName  string
}

// DefaultSentryConfig builds config from the environment. An empty DSN
// disables reporting.
func DefaultSentryConfig() SentryConfig {
	return SentryConfig{
		DSN:         os.Getenv("SENTRY_DSN"),
		Environment: os.Getenv("ENVIRONMENT"),
	}
}

// InitSentry initializes the Sentry SDK. Safe to call with an empty DSN; the
// SDK then no-ops.
func InitSentry(cfg SentryConfig) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		ServerName:  cfg.ServerName,
	})
}

// CaptureError reports an error to Sentry.
func CaptureError(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// Flush waits for buffered events to be delivered.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
