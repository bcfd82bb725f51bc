// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

// Package mail delivers verification email over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/samber/oops"
)

// Config holds mail delivery settings. Enabled=false short-circuits sending
// and logs the verification token instead, which keeps local development
// working without an SMTP server.
type Config struct {
	Enabled bool
	Addr    string // SMTP server in host:port form
	From    string
	BaseURL string // base URL embedded in the verification link
}

// sendFunc matches smtp.SendMail's unauthenticated form; swapped in tests.
type sendFunc func(addr, from string, to []string, msg []byte) error

// Notifier implements auth.Notifier over SMTP.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
	send   sendFunc
}

// NewNotifier creates a Notifier with the given configuration.
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		cfg:    cfg,
		logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			//nolint:wrapcheck // wrapped at the call site with delivery context
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// NotifyVerification sends the verification link to the given address. When
// delivery is disabled the token is logged instead so operators can complete
// verification manually.
func (n *Notifier) NotifyVerification(ctx context.Context, email, username, tokenSecret string) error {
	if !n.cfg.Enabled {
		n.logger.Warn("mail delivery disabled, skipping verification email", "to", email)
		n.logger.Info("verification token issued", "username", username, "token", tokenSecret)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("operation", "context check").
			Wrap(err)
	}

	msg := n.buildVerificationMessage(email, username, tokenSecret)
	if err := n.send(n.cfg.Addr, n.cfg.From, []string{email}, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("operation", "send verification email").
			With("to", email).
			Wrap(err)
	}

	n.logger.Info("verification email sent", "to", email)
	return nil
}

func (n *Notifier) buildVerificationMessage(email, username, tokenSecret string) []byte {
	verificationURL := strings.TrimRight(n.cfg.BaseURL, "/") + "/api/v1/verify?token=" + tokenSecret

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	b.WriteString("Subject: Verify Your Account - Veril\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello %s,\n\n", username)
	b.WriteString("Thank you for signing up! Please verify your email address by clicking the link below:\n\n")
	b.WriteString(verificationURL + "\n\n")
	b.WriteString("This link will expire in 24 hours.\n\n")
	b.WriteString("If you did not create an account, please ignore this email.\n\n")
	b.WriteString("Best regards,\nVeril\n")

	return []byte(b.String())
}
