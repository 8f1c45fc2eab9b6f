package email

import (
	"context"
	"log/slog"
)

// LogSender implements EmailSender for local development.
// It writes the email metadata to the logger instead of sending anything.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a development email sender that logs emails.
func NewLogSender(log *slog.Logger) EmailSender {
	return &LogSender{log: log}
}

// SendEmail logs the email instead of delivering it.
func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "email send skipped (dev mode)",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
