package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Message is a rendered customer e-mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered messages. Implementations must be safe for
// concurrent use; the consumer calls Send from Pub/Sub callback goroutines.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the structured log instead of a mail server.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds a sender that only logs.
func NewLogSender(logg *logger.Logger) (*LogSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogSender{logg: logg}, nil
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient address missing")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"mail_from":    msg.From,
		"mail_to":      msg.To,
		"mail_subject": msg.Subject,
		"body_bytes":   len(msg.Body),
	})
	s.logg.Info(logCtx, "order email dispatched")
	return nil
}
