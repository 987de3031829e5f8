// Package notifications decides who receives push notifications and hands the
// deliveries to a push.Sender.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/push"
	"farmcast/internal/repository"
)

// Category is a user-toggleable notification kind.
type Category string

const (
	CategoryNews    Category = "news"
	CategoryWeather Category = "weather"
)

// Dispatcher delivers single and multicast notifications.
type Dispatcher struct {
	settings repository.SettingsRepository
	sender   push.Sender
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(settings repository.SettingsRepository, sender push.Sender) *Dispatcher {
	return &Dispatcher{settings: settings, sender: sender}
}

func enabled(s *models.Settings, category Category) bool {
	switch category {
	case CategoryWeather:
		return s.WeatherNotifications
	case CategoryNews:
		return s.NewsNotifications
	default:
		return false
	}
}

// NotifyUser sends msg to userID. It fails with METHOD_NOT_ALLOWED, without
// calling the sender, when the user has no device or disabled the category.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID uint, category Category, msg push.Message) error {
	s, err := d.settings.Get(ctx, userID)
	if err != nil {
		return err
	}
	return d.NotifyDevice(ctx, s.FCMToken, enabled(s, category), msg)
}

// NotifyDevice sends msg to token when the recipient allows it. Callers that
// already loaded the recipient's settings use it to skip the lookup.
func (d *Dispatcher) NotifyDevice(ctx context.Context, token string, allowed bool, msg push.Message) error {
	if token == "" || !allowed {
		return models.NewMethodNotAllowedError("Notifications are disabled for this user")
	}
	if err := d.sender.Send(ctx, token, msg); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// NotifyFollowers multicasts msg to every follower of authorID that has a
// device and news notifications enabled. Failed tokens are logged, never
// returned.
func (d *Dispatcher) NotifyFollowers(ctx context.Context, authorID uint, msg push.Message) {
	recipients, err := d.settings.NewsRecipients(ctx, authorID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to resolve followers for push",
			slog.Uint64("author_id", uint64(authorID)), slog.String("error", err.Error()))
		return
	}
	if len(recipients) == 0 {
		return
	}

	tokens := make([]string, 0, len(recipients))
	for _, r := range recipients {
		tokens = append(tokens, r.FCMToken)
	}

	failed, err := d.sender.SendMulticast(ctx, tokens, msg)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "push multicast failed",
			slog.Uint64("author_id", uint64(authorID)), slog.String("error", err.Error()))
	}
	if len(failed) > 0 {
		middleware.Logger.WarnContext(ctx, "push multicast partially failed",
			slog.Uint64("author_id", uint64(authorID)),
			slog.Int("failed", len(failed)),
			slog.Int("recipients", len(tokens)),
			slog.Any("failed_tokens", failed),
		)
	}
}

// NotifyFollowersAsync runs NotifyFollowers in the background, detached from
// the request's cancellation.
func (d *Dispatcher) NotifyFollowersAsync(ctx context.Context, authorID uint, msg push.Message) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				middleware.Logger.Error("panic in follower notification",
					slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
		}()
		d.NotifyFollowers(ctx, authorID, msg)
	}()
}

// Wait blocks until background deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
