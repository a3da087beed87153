package notify

import (
	"log/slog"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/cryptobriefs/internal/config"
)

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg config.EmailConfig, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSender{cfg: cfg, logger: logger}
}

// Send delivers an email with HTML body and plain text fallback.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	m := buildMessage(s.cfg, msg)

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		s.logger.Error("email send failed", "to", s.cfg.ToEmail, "subject", msg.Subject, "error", err)
		return err
	}

	s.logger.Info("email sent", "subject", msg.Subject)
	return nil
}

func buildMessage(cfg config.EmailConfig, msg *RenderedMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.FromEmail)
	m.SetHeader("To", cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	return m
}
