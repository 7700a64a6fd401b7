package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/platform/config"
)

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	_, ok := mailer.(noopMailer)
	assert.True(t, ok)
	assert.NoError(t, mailer.Send(context.Background(), "a@example.com", "b@example.com", "s", "b"))
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("hr@example.com", "e1@example.com", "Leave approved", "Enjoy")
	assert.Equal(t, []string{"hr@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Leave approved"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Enjoy")
}

func TestSendSkipsBlankRecipient(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.invalid", SMTPPort: 25})
	assert.NoError(t, mailer.Send(context.Background(), "a@example.com", " ", "s", "b"))
}
