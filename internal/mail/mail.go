// Package mail delivers transactional email for admissions and announcements.
package mail

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// ErrNoRecipient indicates a message without a deliverable address.
var ErrNoRecipient = errors.New("mail message has no recipient")

// Message is a single outgoing email.
type Message struct {
	To       mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Address) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To.Address); err != nil {
		return err
	}
	return nil
}

// Mailer sends email synchronously so callers can retry on failure.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It keeps a copy
// of every message for inspection.
type LogMailer struct {
	logger zerolog.Logger
	policy *bluemonday.Policy

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer constructs the mailer used when no provider key is configured.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{
		logger: logger.With().Str("component", "log_mailer").Logger(),
		policy: bluemonday.StrictPolicy(),
	}
}

// Send records the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	preview := msg.TextBody
	if preview == "" {
		preview = m.policy.Sanitize(msg.HTMLBody)
	}
	if len(preview) > 120 {
		preview = preview[:120]
	}

	m.logger.Info().
		Str("to", msg.To.Address).
		Str("subject", msg.Subject).
		Str("preview", preview).
		Msg("email logged")
	return nil
}

// Sent returns a copy of the logged messages.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
