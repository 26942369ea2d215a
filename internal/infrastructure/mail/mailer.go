// Package mail delivers account emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"

	"github.com/wms/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*
var templateFS embed.FS

const passwordResetSubject = "Reset your password"

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// dialer is the part of gomail.Dialer the mailer uses
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends password reset emails through an SMTP relay
type SMTPMailer struct {
	dialer   dialer
	from     string
	resetURL string
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewSMTPMailer creates a new SMTPMailer. Port 465 uses implicit TLS,
// other ports upgrade with STARTTLS when the server offers it.
func NewSMTPMailer(cfg config.MailConfig, tokenTTL time.Duration, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mail: host and from address are required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	return newSMTPMailer(d, cfg.From, cfg.ResetURL, tokenTTL, logger), nil
}

func newSMTPMailer(d dialer, from, resetURL string, tokenTTL time.Duration, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer:   d,
		from:     from,
		resetURL: resetURL,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// SendPasswordReset mails the reset link to the account owner
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.passwordResetMessage(to, username, token)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: failed to send password reset: %w", err)
	}

	m.logger.Info("Password reset email sent", zap.String("username", username))
	return nil
}

func (m *SMTPMailer) passwordResetMessage(to, username, token string) (*gomail.Message, error) {
	data := resetData{
		Username:  username,
		Link:      ResetLink(m.resetURL, token),
		ExpiresIn: humanDuration(m.tokenTTL),
	}

	var plain bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&plain, "password_reset.txt", data); err != nil {
		return nil, fmt.Errorf("mail: render plain: %w", err)
	}
	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "password_reset.html", data); err != nil {
		return nil, fmt.Errorf("mail: render html: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", passwordResetSubject)
	msg.SetBody("text/plain", plain.String())
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}

type resetData struct {
	Username  string
	Link      string
	ExpiresIn string
}

// ResetLink appends the token to the reset page URL
func ResetLink(resetURL, token string) string {
	u, err := url.Parse(resetURL)
	if err != nil {
		return resetURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0 && d >= time.Hour:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		minutes := int(d.Round(time.Minute) / time.Minute)
		if minutes <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
}

// LogMailer logs reset links instead of sending them. It is used in
// development when no SMTP relay is configured.
type LogMailer struct {
	resetURL string
	logger   *zap.Logger
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(resetURL string, logger *zap.Logger) *LogMailer {
	return &LogMailer{resetURL: resetURL, logger: logger}
}

// SendPasswordReset logs the reset link
func (m *LogMailer) SendPasswordReset(_ context.Context, to, username, token string) error {
	m.logger.Info("Password reset link",
		zap.String("to", to),
		zap.String("username", username),
		zap.String("link", ResetLink(m.resetURL, token)))
	return nil
}
