package mail

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/testutil"
)

type recordingLogger struct {
	logger.Logger
	warn func(msg string, args ...any)
}

func (l *recordingLogger) Warn(msg string, args ...any) { l.warn(msg, args...) }

func TestSMTPMailer(t *testing.T) {
	t.Run("config required", func(t *testing.T) {
		_, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
		require.Error(t, err, "from is required")

		_, err = NewSMTPMailer(SMTPConfig{From: "no-reply@example.com"})
		require.Error(t, err, "host is required")
	})

	t.Run("reset message", func(t *testing.T) {
		m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"})
		require.NoError(t, err)

		msg, err := m.resetMessage("jane@example.com", "https://app.example.com/reset-password?token=abc")
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = msg.WriteTo(&buf)
		require.NoError(t, err)

		raw := buf.String()
		require.Contains(t, raw, "Subject: Reset your password")
		require.Contains(t, raw, "<jane@example.com>")
		require.Contains(t, raw, "<no-reply@example.com>")
		require.Contains(t, raw, "text/plain")
		require.Contains(t, raw, "text/html")
	})

	t.Run("bad recipient", func(t *testing.T) {
		m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"})
		require.NoError(t, err)

		err = m.SendPasswordReset(t.Context(), "not an email", "https://app.example.com")

		require.Error(t, err)
	})

	t.Run("server unavailable", func(t *testing.T) {
		port, err := testutil.RandomPort()
		require.NoError(t, err)
		m, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "no-reply@example.com"})
		require.NoError(t, err)

		err = m.SendPasswordReset(context.Background(), "jane@example.com", "https://app.example.com")

		require.Error(t, err, "nobody listens on the port")
	})
}

func TestLogMailer(t *testing.T) {
	var logged []any
	l := &recordingLogger{Logger: logger.NewNoOpLogger(), warn: func(msg string, args ...any) { logged = args }}

	err := LogMailer{Logger: l}.SendPasswordReset(t.Context(), "jane@example.com",
		"https://app.example.com/reset-password?token=deadbeefsecret#x")

	require.NoError(t, err)
	require.Contains(t, logged, "jane@example.com")
	require.Contains(t, logged, "https://app.example.com/reset-password")
	for _, arg := range logged {
		require.NotContains(t, fmt.Sprint(arg), "deadbeefsecret", "reset token must never be logged")
	}
}
