package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail through an authenticated SMTP server.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	fromName string
}

func NewSMTPSender(host string, port int, user, password, fromName string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, password: password, fromName: fromName}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.user); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.user),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTLSConfig(&tls.Config{ServerName: s.host}),
	)
	if err != nil {
		return fmt.Errorf("smtp client (host=%s port=%d): %w", s.host, s.port, err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send (host=%s port=%d): %w", s.host, s.port, err)
	}
	return nil
}
