package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/observability"
	"farmcast/internal/push"
	"farmcast/internal/repository"
	"farmcast/internal/weather"

	"go.opentelemetry.io/otel/attribute"
)

// FarmRefresher refreshes the stored forecast of a farm.
type FarmRefresher interface {
	RefreshFarm(ctx context.Context, farm *models.Farm) (*FarmWeather, error)
}

// AlertSummary counts what one alert run did.
type AlertSummary struct {
	Farms   int `json:"farms"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type AlertService struct {
	farmRepo  repository.FarmRepository
	refresher FarmRefresher
	notifier  Notifier
}

func NewAlertService(farmRepo repository.FarmRepository, refresher FarmRefresher, notifier Notifier) *AlertService {
	return &AlertService{farmRepo: farmRepo, refresher: refresher, notifier: notifier}
}

var errNoTomorrow = errors.New("daily forecast has no entry for tomorrow")

// RunDaily refreshes every farm's forecast and pushes tomorrow's outlook to
// owners with a device and weather alerts enabled. A failing farm does not
// stop the run.
func (s *AlertService) RunDaily(ctx context.Context) (AlertSummary, error) {
	start := time.Now()
	ctx, span := observability.StartInternalSpan(ctx, "alerts.run_daily")
	var summary AlertSummary
	var runErr error
	defer func() {
		observability.AlertJobDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(
			attribute.Int("alerts.farms", summary.Farms),
			attribute.Int("alerts.sent", summary.Sent),
			attribute.Int("alerts.failed", summary.Failed),
		)
		observability.EndSpan(span, runErr)
	}()

	targets, err := s.farmRepo.ListAlertTargets(ctx)
	if err != nil {
		runErr = err
		return summary, err
	}
	summary.Farms = len(targets)

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			runErr = err
			return summary, err
		}

		outcome := s.process(ctx, t)
		observability.AlertRuns.WithLabelValues(outcome).Inc()
		switch outcome {
		case "sent":
			summary.Sent++
		case "skipped":
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	middleware.Logger.InfoContext(ctx, "daily weather alerts finished",
		slog.Int("farms", summary.Farms),
		slog.Int("sent", summary.Sent),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

func (s *AlertService) process(ctx context.Context, t models.FarmAlertTarget) string {
	ctx = middleware.WithFarm(ctx, t.FarmID)
	farm := &models.Farm{
		ID:        t.FarmID,
		UserID:    t.UserID,
		Name:      t.Name,
		Latitude:  t.Latitude,
		Longitude: t.Longitude,
	}

	snapshot, err := s.refresher.RefreshFarm(ctx, farm)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "farm weather refresh failed", slog.String("error", err.Error()))
		return "failed"
	}
	if t.FCMToken == "" || !t.WeatherNotifications {
		return "skipped"
	}

	msg, err := AlertMessage(snapshot.Daily)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cannot build weather alert", slog.String("error", err.Error()))
		return "failed"
	}
	if err := s.notifier.NotifyDevice(ctx, t.FCMToken, true, msg); err != nil {
		middleware.Logger.WarnContext(ctx, "weather alert delivery failed", slog.String("error", err.Error()))
		return "failed"
	}
	return "sent"
}

// AlertMessage renders tomorrow's outlook from a daily forecast.
func AlertMessage(daily *weather.Daily) (push.Message, error) {
	if daily == nil {
		return push.Message{}, errNoTomorrow
	}
	tomorrow, ok := daily.Tomorrow()
	if !ok {
		return push.Message{}, errNoTomorrow
	}
	return push.Message{
		Title: "Tomorrow in " + daily.Weather.Name + " : " + capitalize(tomorrow.WeatherDescription),
		Body: "Temperature will be " + formatTemp(tomorrow.TempDay) + "°C\n" +
			"At night will be " + formatTemp(tomorrow.TempNight) + "°C",
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
