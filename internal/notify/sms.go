package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

var smsTracer = otel.Tracer("autodetail.internal.notify.sms")

// SMSSender sends a text message to one phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// messageCreator is the part of the Twilio v2010 API the sender uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type TwilioSender struct {
	api    messageCreator
	from   string
	logger *logging.Logger
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func NewTwilioSender(cfg TwilioConfig, logger *logging.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioSender(client.Api, cfg.FromNumber, logger)
}

func newTwilioSender(api messageCreator, from string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{api: api, from: from, logger: logger}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("notify: sms recipient required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("notify: sms body required")
	}

	_, span := smsTracer.Start(ctx, "notify.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("notify.to", to))

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	// The Twilio client takes no context; honour cancellation before the call.
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := s.api.CreateMessage(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create message")
		return fmt.Errorf("notify: twilio send failed: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("sms sent via twilio", "to", to, "sid", sid)
	return nil
}

// StubSMSSender logs instead of sending. Used when Twilio is not configured.
type StubSMSSender struct {
	logger *logging.Logger
}

func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

func (s *StubSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to, "length", len(body))
	return nil
}
