package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/curaious/oneflow/internal/config"
)

type mockSender struct {
	sent []*gomail.Message
	err  error
}

func (m *mockSender) DialAndSend(msgs ...*gomail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

func TestNewEmailNotifierDisabled(t *testing.T) {
	n := NewEmailNotifier(&config.Config{MAIL_FROM: "a@b.c"})
	assert.Nil(t, n)

	err := n.SendVerificationCode(context.Background(), "x@y.z", "X", "123456")
	assert.ErrorIs(t, err, ErrMailNotConfigured)
}

func TestSendVerificationCode(t *testing.T) {
	s := &mockSender{}
	n := &EmailNotifier{from: "no-reply@oneflow.local", dialer: s}

	require.NoError(t, n.SendVerificationCode(context.Background(), "ana@example.com", "Ana", "482913"))
	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, s.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"[OneFlow] Verify your email"}, s.sent[0].GetHeader("Subject"))
}

func TestSendVerificationCodeErrors(t *testing.T) {
	n := &EmailNotifier{from: "no-reply@oneflow.local", dialer: &mockSender{err: errors.New("dial tcp: refused")}}

	err := n.SendVerificationCode(context.Background(), "ana@example.com", "Ana", "482913")
	assert.ErrorContains(t, err, "refused")

	err = n.SendVerificationCode(context.Background(), "  ", "Ana", "482913")
	assert.ErrorContains(t, err, "empty recipient")
}

func TestVerificationBodiesContainCode(t *testing.T) {
	assert.Contains(t, verificationText("Ana", "482913"), "482913")
	assert.Contains(t, verificationHTML("Ana", "482913"), "482913")
}
