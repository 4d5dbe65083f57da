package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
)

// Message is a rendered email with a plain-text body and an HTML alternative.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	config sharedConfig.EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg sharedConfig.EmailConfig) *SMTPSender {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)

	return &SMTPSender{
		config: cfg,
		dialer: dialer,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("email recipient is required")
	}

	m := buildMessage(s.config, msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func buildMessage(cfg sharedConfig.EmailConfig, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	if cfg.FromName != "" {
		m.SetAddressHeader("From", cfg.FromAddress, cfg.FromName)
	} else {
		m.SetHeader("From", cfg.FromAddress)
	}
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	return m
}
