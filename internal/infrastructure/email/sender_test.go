package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
)

func TestBuildMessage(t *testing.T) {
	cfg := sharedConfig.EmailConfig{FromAddress: "billing@example.com", FromName: "Billing"}

	m := buildMessage(cfg, Message{
		To:        "ama@example.com",
		ToName:    "Ama",
		Subject:   "Your subscription renewed",
		PlainBody: "renewed",
		HTMLBody:  "<p>renewed</p>",
	})

	assert.Equal(t, []string{`"Billing" <billing@example.com>`}, m.GetHeader("From"))
	assert.Equal(t, []string{`"Ama" <ama@example.com>`}, m.GetHeader("To"))
	assert.Equal(t, []string{"Your subscription renewed"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "text/html")
}

func TestSMTPSender_RejectsMissingRecipient(t *testing.T) {
	s := NewSMTPSender(sharedConfig.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025})

	err := s.Send(context.Background(), Message{Subject: "x"})
	assert.Error(t, err)
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s := NewSMTPSender(sharedConfig.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
