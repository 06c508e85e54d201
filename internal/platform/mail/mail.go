// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// Package mail provides outbound email delivery for the Booklore platform.
//
// # Architecture
//
// The domain services depend only on the small [Sender] interface; the SMTP
// implementation here is Infrastructure. Tests substitute a recording fake,
// so no test ever opens a network connection.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string // HTML body
}

// Sender delivers a message to its recipient.
//
// Implementations must respect ctx cancellation where feasible and return an
// error when delivery cannot be confirmed; callers treat a failed send as a
// hard dependency failure, not best-effort.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// SMTPConfig holds the transport settings for [SMTPSender].
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender sends mail over authenticated SMTP using gomail.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates a new SMTP-backed [Sender].
func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		config: config,
		logger: logger,
	}
}

// Send delivers the message via SMTP. A dial or delivery failure is returned
// to the caller; nothing is retried here.
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	if sender.config.Host == "" || sender.config.From == "" {
		return fmt.Errorf("mail: SMTP transport is not configured")
	}

	// Respect an already-cancelled context before dialing.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: aborted before send: %w", err)
	}

	email := gomail.NewMessage()
	email.SetHeader("From", sender.config.From)
	email.SetHeader("To", message.To)
	email.SetHeader("Subject", message.Subject)
	email.SetBody("text/html", message.Body)

	dialer := gomail.NewDialer(sender.config.Host, sender.config.Port, sender.config.User, sender.config.Pass)

	if err := dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("mail: send failed: %w", err)
	}

	sender.logger.Info("mail_sent",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
	)

	return nil
}

// ResetPasswordBody renders the HTML body for a password-reset email.
//
// The resetURL embeds the one-time plaintext secret; it is the only place the
// secret ever leaves the server.
func ResetPasswordBody(resetURL string, validMinutes int) string {
	template := `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Reset your Booklore password</h2>
    <p>We received a request to reset the password for your account.</p>
    <p style="text-align: center; margin: 24px 0;">
      <a href="%s" style="display: inline-block; padding: 12px 20px; background: #0f172a; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: bold;">Reset Password</a>
    </p>
    <p>This link is valid for %d minutes. If you did not request a reset, you can safely ignore this email.</p>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, resetURL, validMinutes)
}
