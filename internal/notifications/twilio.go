package notifications

import (
	"context"
	"fmt"

	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TwilioSender delivers SMS through the Twilio REST API.
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewTwilioSender creates a Twilio-backed sender.
func NewTwilioSender(accountSid, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
	}
}

// SendSMS sends a single message. The twilio client has no context support;
// we check for cancellation before issuing the call.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Sid == nil {
		return fmt.Errorf("no message SID returned")
	}

	logger.DebugContext(ctx, "sms sent", zap.String("sid", *resp.Sid))
	return nil
}
