// Package push delivers device notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"log/slog"

	"farmcast/internal/middleware"
	"farmcast/internal/observability"
)

// Message is the notification payload shown on the device.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers notifications to device tokens.
type Sender interface {
	// Send delivers msg to a single device.
	Send(ctx context.Context, token string, msg Message) error

	// SendMulticast delivers msg to every token and returns the tokens the
	// provider rejected. err is only set when the whole call failed.
	SendMulticast(ctx context.Context, tokens []string, msg Message) (failed []string, err error)
}

// LogSender logs notifications instead of delivering them. It is used when no
// Firebase credentials are configured.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) Send(ctx context.Context, token string, msg Message) error {
	middleware.Logger.InfoContext(ctx, "push notification (log only)",
		slog.String("token", redact(token)),
		slog.String("title", msg.Title),
	)
	observability.PushSends.WithLabelValues("single", "logged").Inc()
	return nil
}

func (LogSender) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	middleware.Logger.InfoContext(ctx, "push multicast (log only)",
		slog.Int("recipients", len(tokens)),
		slog.String("title", msg.Title),
	)
	observability.PushSends.WithLabelValues("multicast", "logged").Inc()
	return nil, nil
}

// redact keeps only the tail of a device token for logs.
func redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return "***" + token[len(token)-6:]
}
