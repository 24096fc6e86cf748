package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/biodash/vitals-api/internal/config"
)

// Sender delivers verification codes to doctors. Delivery is best-effort:
// callers log failures instead of failing the request that triggered them.
type Sender interface {
	SendVerificationCode(ctx context.Context, name, address string, code int) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpSender) SendVerificationCode(ctx context.Context, name, address string, code int) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, "Support")
	msg.SetHeader("To", address)
	msg.SetHeader("Subject", "BioDash. Email verification.")
	msg.SetBody("text/html", fmt.Sprintf(verificationTemplate, name, code))

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

const verificationTemplate = `<html>
  <body>
    <p>Hello %s,</p>
    <p>Your BioDash verification code is:</p>
    <h2>%d</h2>
    <p>If you did not request this code, you can ignore this message.</p>
  </body>
</html>`
