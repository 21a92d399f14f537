// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification links and codes out-of-band.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/verimail/webapp-starter/internal/config"
	"github.com/wneessen/go-mail"
)

// Service sends verification mail via SMTP. Delivery is fire-and-forget
// from the caller's perspective: failures are logged, never returned, so a
// flaky mail server cannot leak whether a verification was created.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service. An empty SMTP host switches the
// service into log-only mode for local development.
func NewService(cfg *config.SMTPConfig, baseURL string) *Service {
	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// DeliverSignUp sends the sign-up verification link (and code, if set).
func (s *Service) DeliverSignUp(ctx context.Context, to, token, otp string) {
	url := fmt.Sprintf("%s/signup/verification/%s", s.baseURL, token)
	s.deliver(ctx, to, "Confirm your registration", url, otp)
}

// DeliverSignIn sends the sign-in verification link (and code, if set).
func (s *Service) DeliverSignIn(ctx context.Context, to, token, otp string) {
	url := fmt.Sprintf("%s/signin/verification/%s", s.baseURL, token)
	s.deliver(ctx, to, "Sign in to your account", url, otp)
}

func (s *Service) deliver(ctx context.Context, to, subject, url, otp string) {
	if s.cfg.Host == "" {
		attrs := []any{"to", to, "url", url}
		if otp != "" {
			attrs = append(attrs, "code", otp)
		}
		slog.InfoContext(ctx, "verification_link", attrs...)
		return
	}

	body := fmt.Sprintf("Open the link below within 5 minutes to continue:\n\n%s\n", url)
	if otp != "" {
		body += fmt.Sprintf("\nYour confirmation code: %s\n", otp)
	}

	if err := s.send(to, subject, body); err != nil {
		slog.ErrorContext(ctx, "verification_mail_failed", "to", to, "error", err)
		return
	}
	slog.InfoContext(ctx, "verification_mail_sent", "to", to)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
