// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"spendsmart/internal/config"
)

// ErrNotConfigured is returned by the sender used when SMTP settings are missing.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is a single outgoing email with plain-text and HTML bodies.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Receipt reports which recipients the server accepted or rejected.
type Receipt struct {
	Accepted []string
	Rejected []string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// New returns an SMTP sender for cfg, or a sender that always fails with
// ErrNotConfigured when cfg lacks credentials.
func New(cfg config.SMTPConfig) Sender {
	if !cfg.Enabled() {
		return disabledSender{}
	}
	return &SMTPSender{cfg: cfg, displayName: "SpendSmart"}
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	cfg         config.SMTPConfig
	displayName string
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.displayName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return &Receipt{Rejected: []string{msg.To}}, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return &Receipt{Rejected: []string{msg.To}}, fmt.Errorf("send mail: %w", err)
	}
	return &Receipt{Accepted: []string{msg.To}}, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(15 * time.Second),
	}
	// 465 is implicit TLS; every other port must upgrade with STARTTLS.
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, Message) (*Receipt, error) {
	return nil, ErrNotConfigured
}
