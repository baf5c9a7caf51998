package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridConfig configures the SendGrid mailer.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     zerolog.Logger
}

// NewSendGridMailer builds a mailer from cfg.
func NewSendGridMailer(cfg SendGridConfig, logger zerolog.Logger) (*SendGridMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key must not be empty")
	}
	host := cfg.Host
	if host == "" {
		host = sendgridHost
	}

	return &SendGridMailer{
		key:        cfg.APIKey,
		host:       host,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		subjPrefix: "[" + cfg.FromName + "] ",
		logger:     logger.With().Str("component", "sendgrid_mailer").Logger(),
	}, nil
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)

	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	v3.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTMLBody != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return v3
}

// Send posts the message and fails on any non-2xx response.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequest(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Warn().Int("status", res.StatusCode).Str("to", msg.To.Address).Msg("sendgrid rejected message")
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}
	return nil
}

// New returns a SendGrid mailer, or a LogMailer when no API key is configured.
func New(cfg SendGridConfig, logger zerolog.Logger) (Mailer, error) {
	if cfg.APIKey == "" {
		logger.Warn().Msg("sendgrid api key not set, mail is logged only")
		return NewLogMailer(logger), nil
	}
	return NewSendGridMailer(cfg, logger)
}
