package notifications

import (
	"context"
	"testing"

	"github.com/safarides/safar-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMSSenderFallsBackToLogSender(t *testing.T) {
	sender := NewSMSSender(config.SMSConfig{})
	assert.IsType(t, &LogSender{}, sender)

	// Log-only delivery always succeeds.
	assert.NoError(t, sender.SendSMS(context.Background(), "+919000000001", "hello"))
}

func TestNewSMSSenderUsesTwilioWhenConfigured(t *testing.T) {
	sender := NewSMSSender(config.SMSConfig{
		AccountSID: "AC00000000000000000000000000000000",
		AuthToken:  "token",
		FromNumber: "+15550001111",
	})
	assert.IsType(t, &TwilioSender{}, sender)
}

func TestTwilioSenderHonorsCancelledContext(t *testing.T) {
	sender := NewTwilioSender("AC00000000000000000000000000000000", "token", "+15550001111")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.SendSMS(ctx, "+919000000001", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
