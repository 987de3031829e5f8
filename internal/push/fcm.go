package push

import (
	"context"
	"fmt"

	"farmcast/internal/observability"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
)

// maxMulticastTokens is the FCM limit per multicast request.
const maxMulticastTokens = 500

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMSender sends notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client messagingClient
}

// NewFCMSender initializes a Firebase app from a service account file.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// NewSender returns an FCM sender when credentials are configured and a
// LogSender otherwise.
func NewSender(ctx context.Context, credentialsFile string) (Sender, error) {
	if credentialsFile == "" {
		return NewLogSender(), nil
	}
	return NewFCMSender(ctx, credentialsFile)
}

func notification(msg Message) *messaging.Notification {
	return &messaging.Notification{Title: msg.Title, Body: msg.Body}
}

func (s *FCMSender) Send(ctx context.Context, token string, msg Message) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "fcm", "send")
	defer func() { observability.EndSpan(span, err) }()

	_, err = s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: notification(msg),
		Data:         msg.Data,
	})
	if err != nil {
		observability.PushSends.WithLabelValues("single", "error").Inc()
		return fmt.Errorf("fcm send: %w", err)
	}
	observability.PushSends.WithLabelValues("single", "ok").Inc()
	return nil
}

func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, msg Message) (failed []string, err error) {
	ctx, span := observability.StartClientSpan(ctx, "fcm", "multicast", attribute.Int("push.recipients", len(tokens)))
	defer func() { observability.EndSpan(span, err) }()

	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		batch := tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: notification(msg),
			Data:         msg.Data,
		})
		if err != nil {
			observability.PushSends.WithLabelValues("multicast", "error").Inc()
			return append(failed, tokens[start:]...), fmt.Errorf("fcm multicast: %w", err)
		}

		if resp.FailureCount > 0 {
			for i, r := range resp.Responses {
				if !r.Success && i < len(batch) {
					failed = append(failed, batch[i])
				}
			}
		}
	}

	observability.PushFailedTokens.Add(float64(len(failed)))
	outcome := "ok"
	if len(failed) > 0 {
		outcome = "partial"
	}
	observability.PushSends.WithLabelValues("multicast", outcome).Inc()
	return failed, nil
}
