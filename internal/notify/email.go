package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender sends plain-text mail over SMTP.
type EmailSender struct {
	cfg      config.MailConfig
	sendMail sendMailFunc
	now      func() time.Time
}

// NewEmailSender creates an SMTP sender.
func NewEmailSender(cfg config.MailConfig) *EmailSender {
	return &EmailSender{cfg: cfg, sendMail: smtp.SendMail, now: time.Now}
}

// Send delivers one message. ctx is checked before dialing; net/smtp does
// not accept a context.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("email %w", ErrDisabled)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, from, []string{to}, s.message(from, to, subject, body)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", addr, err)
	}
	return nil
}

func (s *EmailSender) message(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + stripNewlines(subject) + "\r\n")
	b.WriteString("Date: " + s.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
