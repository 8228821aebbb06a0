// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

// Package mail delivers account notifications such as password-reset links.
package mail

import (
	"context"
	"log/slog"
)

// Sender dispatches one HTML notification to one address.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogSender writes mails to the log instead of sending them. Used in
// development and whenever no mail API token is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the mail and reports success.
func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.InfoContext(ctx, "mail not sent (no mail token configured)",
		"to", to,
		"subject", subject,
		"body", htmlBody,
	)
	return nil
}
