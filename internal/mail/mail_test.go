package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := New(SMTPConfig{}, zerolog.New(&buf))

	_, ok := m.(*LogMailer)
	assert.True(t, ok)
	assert.NoError(t, m.Send(context.Background(), "a@x.com", "Your OTP code", "123456"))
	assert.Contains(t, buf.String(), "a@x.com")
	assert.NotContains(t, buf.String(), "123456")
	assert.Equal(t, 1, strings.Count(buf.String(), `"component"`))
	assert.Contains(t, buf.String(), `"component":"mail"`)
}

func TestNewUsesSMTPWhenHostSet(t *testing.T) {
	m := New(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "shop@example.com"}, zerolog.Nop())
	_, ok := m.(*SMTPMailer)
	assert.True(t, ok)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "a@x.com", "s", "b"), context.Canceled)
}
