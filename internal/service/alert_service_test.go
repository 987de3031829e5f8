package service

import (
	"context"
	"errors"
	"testing"

	"farmcast/internal/models"
	"farmcast/internal/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresherStub struct {
	refreshed []uint
	fn        func(*models.Farm) (*FarmWeather, error)
}

func (r *refresherStub) RefreshFarm(_ context.Context, farm *models.Farm) (*FarmWeather, error) {
	r.refreshed = append(r.refreshed, farm.ID)
	return r.fn(farm)
}

func dailyFor(name string) *weather.Daily {
	return &weather.Daily{
		Weather: weather.Location{Name: name},
		Variables: []weather.DailyVariables{
			{TempDay: 9, TempNight: 1, WeatherDescription: "fog"},
			{TempDay: 12.5, TempNight: -3, WeatherDescription: "LIGHT rain"},
		},
	}
}

func TestAlertMessage(t *testing.T) {
	t.Parallel()

	msg, err := AlertMessage(dailyFor("Lublin"))
	require.NoError(t, err)
	assert.Equal(t, "Tomorrow in Lublin : Light rain", msg.Title)
	assert.Equal(t, "Temperature will be 12.5°C\nAt night will be -3°C", msg.Body)

	_, err = AlertMessage(&weather.Daily{Variables: []weather.DailyVariables{{}}})
	assert.Error(t, err)
	_, err = AlertMessage(nil)
	assert.Error(t, err)
}

func TestAlertService_RunDaily(t *testing.T) {
	t.Parallel()

	farms := noopFarmRepo()
	farms.listAlertTargetsFn = func(_ context.Context) ([]models.FarmAlertTarget, error) {
		return []models.FarmAlertTarget{
			{FarmID: 1, UserID: 1, Name: "A", FCMToken: "tok-1", WeatherNotifications: true},
			{FarmID: 2, UserID: 2, Name: "B", FCMToken: "", WeatherNotifications: true},
			{FarmID: 3, UserID: 3, Name: "C", FCMToken: "tok-3", WeatherNotifications: false},
			{FarmID: 4, UserID: 4, Name: "D", FCMToken: "tok-4", WeatherNotifications: true},
			{FarmID: 5, UserID: 5, Name: "E", FCMToken: "tok-5", WeatherNotifications: true},
		}, nil
	}
	refresher := &refresherStub{fn: func(f *models.Farm) (*FarmWeather, error) {
		if f.ID == 4 {
			return nil, models.NewUpstreamError("Timeout Error", errors.New("deadline"))
		}
		return &FarmWeather{FarmID: f.ID, Daily: dailyFor("Place " + f.Name)}, nil
	}}
	n := &notifierStub{}
	svc := NewAlertService(farms, refresher, n)

	summary, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AlertSummary{Farms: 5, Sent: 2, Skipped: 2, Failed: 1}, summary)
	assert.Equal(t, []uint{1, 2, 3, 4, 5}, refresher.refreshed)
	assert.Equal(t, []string{"tok-1", "tok-5"}, n.devices)
	assert.Equal(t, "Tomorrow in Place A : Light rain", n.messages[0].Title)
}

func TestAlertService_RunDailyListError(t *testing.T) {
	t.Parallel()

	farms := noopFarmRepo()
	farms.listAlertTargetsFn = func(_ context.Context) ([]models.FarmAlertTarget, error) {
		return nil, models.NewInternalError(errors.New("db down"))
	}
	_, err := NewAlertService(farms, &refresherStub{}, &notifierStub{}).RunDaily(context.Background())
	assertAppError(t, err, models.CodeInternal, "")
}

func TestAlertService_DeliveryFailureContinues(t *testing.T) {
	t.Parallel()

	farms := noopFarmRepo()
	farms.listAlertTargetsFn = func(_ context.Context) ([]models.FarmAlertTarget, error) {
		return []models.FarmAlertTarget{
			{FarmID: 1, FCMToken: "a", WeatherNotifications: true},
			{FarmID: 2, FCMToken: "b", WeatherNotifications: true},
		}, nil
	}
	refresher := &refresherStub{fn: func(f *models.Farm) (*FarmWeather, error) {
		return &FarmWeather{FarmID: f.ID, Daily: dailyFor("X")}, nil
	}}
	n := &notifierStub{deviceErr: models.NewInternalError(errors.New("fcm down"))}

	summary, err := NewAlertService(farms, refresher, n).RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, refresher.refreshed, 2)
}
