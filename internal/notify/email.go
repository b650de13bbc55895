package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/curaious/oneflow/internal/config"
)

var ErrMailNotConfigured = errors.New("email config missing")

// Notifier delivers account related mail.
type Notifier interface {
	SendVerificationCode(ctx context.Context, toEmail, name, code string) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends mail over SMTP.
type EmailNotifier struct {
	from   string
	dialer sender
}

// NewEmailNotifier returns nil when SMTP is not configured; callers treat that as mail disabled.
func NewEmailNotifier(conf *config.Config) *EmailNotifier {
	if conf.SMTP_HOST == "" || conf.MAIL_FROM == "" {
		return nil
	}
	return &EmailNotifier{
		from:   conf.MAIL_FROM,
		dialer: gomail.NewDialer(conf.SMTP_HOST, conf.SMTP_PORT, conf.SMTP_USER, conf.SMTP_PASS),
	}
}

func (n *EmailNotifier) SendVerificationCode(ctx context.Context, toEmail, name, code string) error {
	if n == nil || n.dialer == nil {
		return ErrMailNotConfigured
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[OneFlow] Verify your email")
	m.SetBody("text/plain", verificationText(name, code))
	m.AddAlternative("text/html", verificationHTML(name, code))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	slog.InfoContext(ctx, "Verification email sent", slog.String("to", toEmail))
	return nil
}

func verificationText(name, code string) string {
	return fmt.Sprintf("Hi %s,\n\nYour OneFlow verification code is %s. It expires in 10 minutes.\n", name, code)
}

func verificationHTML(name, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to OneFlow, %s</h2>
    <p>Your verification code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in 10 minutes.</p>
  </div>
</body>
</html>`, name, code)
}
