package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	verificationSubject = "Verify Your Account - Secure Access"
	resetSubject        = "Reset Your Password - Secure Link"
)

// Dialer is the part of *gomail.Dialer the mailer depends on.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string

	// FrontendURL hosts the reset-password page, BackendURL the verify-email endpoint.
	FrontendURL string
	BackendURL  string

	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type AccountMailer struct {
	cfg    Config
	dialer Dialer
	logger *zap.Logger
}

// NewAccountMailer builds an SMTP mailer. Port 465 dials implicit TLS, anything
// else negotiates STARTTLS when the server offers it.
func NewAccountMailer(cfg Config, logger *zap.Logger) (*AccountMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" || cfg.Port == 0 || strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mailer missing configuration: host, port and from are required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	d.SSL = cfg.Port == 465
	return NewAccountMailerWithDialer(cfg, d, logger), nil
}

func NewAccountMailerWithDialer(cfg Config, dialer Dialer, logger *zap.Logger) *AccountMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	return &AccountMailer{cfg: cfg, dialer: dialer, logger: logger.Named("mailer")}
}

func (m *AccountMailer) SendVerification(ctx context.Context, email, token string) error {
	link := m.cfg.BackendURL + "/api/auth/verify-email?token=" + url.QueryEscape(token)
	return m.send(ctx, email, verificationSubject, templateData{
		Title:      "Verify Your Account",
		Message:    "Please verify your account by clicking the button below.",
		Validity:   validity(m.cfg.VerificationTTL),
		ButtonText: "Verify Account",
		Link:       link,
	})
}

func (m *AccountMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	link := m.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	return m.send(ctx, email, resetSubject, templateData{
		Title:      "Reset Your Password",
		Message:    "You requested to reset your password. Click below to securely reset it.",
		Validity:   validity(m.cfg.ResetTTL),
		ButtonText: "Reset Password",
		Link:       link,
	})
}

func (m *AccountMailer) send(ctx context.Context, to, subject string, data templateData) error {
	if m == nil || m.dialer == nil {
		return errors.New("mailer not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("no recipient provided for email")
	}

	data.Year = time.Now().Year()
	var body bytes.Buffer
	if err := layout.Execute(&body, data); err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	msg := gomail.NewMessage()
	if m.cfg.SenderName != "" {
		msg.SetAddressHeader("From", m.cfg.From, m.cfg.SenderName)
	} else {
		msg.SetHeader("From", m.cfg.From)
	}
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainText(data))
	msg.AddAlternative("text/html", body.String())

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("email send cancelled", zap.String("subject", subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			m.logger.Error("email send failed", zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("send email: %w", err)
		}
	}

	m.logger.Info("email sent", zap.String("subject", subject))
	return nil
}

func plainText(data templateData) string {
	var b strings.Builder
	b.WriteString(data.Title)
	b.WriteString("\n\n")
	b.WriteString(data.Message)
	if data.Validity != "" {
		b.WriteString(" This link is valid for ")
		b.WriteString(data.Validity)
		b.WriteString(".")
	}
	b.WriteString("\n\n")
	b.WriteString(data.Link)
	b.WriteString("\n\nIf you didn't request this, you can safely ignore this email.\n")
	return b.String()
}

// validity renders a ttl as "1 hour", "30 minutes"; zero means the link never expires.
func validity(ttl time.Duration) string {
	switch {
	case ttl <= 0:
		return ""
	case ttl%time.Hour == 0:
		return plural(int(ttl/time.Hour), "hour")
	case ttl%time.Minute == 0:
		return plural(int(ttl/time.Minute), "minute")
	default:
		return ttl.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
