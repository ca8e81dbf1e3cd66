// Package mailer delivers transactional email for credential flows.
package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Message is an outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends messages. Credential flows treat a send failure as
// distinct from validation failures: the token is already persisted and
// valid when the send runs.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the delivery settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer delivers over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTP constructs an SMTPMailer.
func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers a single message.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMsg()
	if err := mail.From(m.cfg.From); err != nil {
		return fmt.Errorf("mailer: from address: %w", err)
	}
	if err := mail.To(msg.To); err != nil {
		return fmt.Errorf("mailer: to address: %w", err)
	}
	mail.Subject(msg.Subject)
	mail.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	opts := []gomail.Option{gomail.WithPort(m.cfg.Port)}
	if m.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Pass),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, mail); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
