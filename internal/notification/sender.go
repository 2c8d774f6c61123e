package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	errors "github.com/frahmantamala/time2pay/internal"
)

// Message is one outgoing HTML email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers through a single SMTP relay, retrying with exponential
// backoff. An empty host turns every send into a logged no-op.
type SMTPSender struct {
	cfg     errors.MailConfig
	logger  *slog.Logger
	backoff time.Duration
	send    sendMailFunc
}

func NewSMTPSender(cfg errors.MailConfig, logger *slog.Logger) *SMTPSender {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &SMTPSender{
		cfg:     cfg,
		logger:  logger,
		backoff: time.Second,
		send:    smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		s.logger.Warn("SMTP not configured, skipping email send", "to", msg.To, "subject", msg.Subject)
		return nil
	}

	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return errors.NewValidationFieldError("to", "invalid recipient address", errors.ErrCodeInvalidEmail)
	}
	to.Name = msg.ToName

	from := &mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}
	body := buildMIME(from, to, msg.Subject, msg.HTMLBody)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		lastErr = s.send(addr, auth, s.cfg.From, []string{to.Address}, body)
		if lastErr == nil {
			s.logger.Info("email sent", "to", to.Address, "subject", msg.Subject, "attempt", attempt)
			return nil
		}

		s.logger.Error("failed to send email",
			"to", to.Address,
			"subject", msg.Subject,
			"attempt", attempt,
			"max_retries", s.cfg.MaxRetries,
			"error", lastErr)

		if attempt < s.cfg.MaxRetries {
			// 1s, 2s, 4s ...
			select {
			case <-time.After(s.backoff << (attempt - 1)):
			case <-ctx.Done():
				return errors.NewExternalError("Email delivery was cancelled.", errors.ErrCodeMailFailure, ctx.Err())
			}
		}
	}

	return errors.NewExternalError(
		fmt.Sprintf("Failed to send email after %d attempts.", s.cfg.MaxRetries),
		errors.ErrCodeMailFailure,
		lastErr)
}

func buildMIME(from, to *mail.Address, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mimeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// mimeHeader strips line breaks so a subject cannot inject headers.
func mimeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
