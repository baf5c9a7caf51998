package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogMailerRecordsMessages(t *testing.T) {
	mailer := NewLogMailer(zerolog.Nop())

	err := mailer.Send(context.Background(), Message{To: mail.Address{Address: "a@example.com"}, Subject: "Hi", HTMLBody: "<b>Hello</b>"})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{Subject: "No one"})
	require.ErrorIs(t, err, ErrNoRecipient)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "Hi", sent[0].Subject)
}

func TestSendGridMailerPostsV3Payload(t *testing.T) {
	var body map[string]interface{}
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, "/v3/mail/send", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer, err := NewSendGridMailer(SendGridConfig{APIKey: "key", FromEmail: "no-reply@example.com", FromName: "GEMA", Host: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: mail.Address{Name: "Ada", Address: "ada@example.com"}, Subject: "Welcome", TextBody: "hello"})
	require.NoError(t, err)
	require.Equal(t, "Bearer key", auth)

	personalizations := body["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	require.Equal(t, "[GEMA] Welcome", first["subject"])
}

func TestSendGridMailerReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	mailer, err := NewSendGridMailer(SendGridConfig{APIKey: "key", FromEmail: "no-reply@example.com", FromName: "GEMA", Host: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: mail.Address{Address: "ada@example.com"}, Subject: "Welcome"})
	require.Error(t, err)

	_, err = NewSendGridMailer(SendGridConfig{}, zerolog.Nop())
	require.Error(t, err)
}

func TestSendGridMailerSkipsCancelledContext(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer, err := NewSendGridMailer(SendGridConfig{APIKey: "key", FromEmail: "no-reply@example.com", FromName: "GEMA", Host: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = mailer.Send(ctx, Message{To: mail.Address{Address: "ada@example.com"}, Subject: "Welcome"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, hits)
}

func TestNewFallsBackToLogMailer(t *testing.T) {
	m, err := New(SendGridConfig{FromEmail: "no-reply@gema.test", FromName: "GEMA"}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &LogMailer{}, m)

	m, err = New(SendGridConfig{APIKey: "SG.key", FromEmail: "no-reply@gema.test", FromName: "GEMA"}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &SendGridMailer{}, m)
}
