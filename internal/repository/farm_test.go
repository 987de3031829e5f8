package repository

import (
	"context"
	"testing"
	"time"

	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFarmRepository_CRUD(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	repo := NewFarmRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "alice")
	farm := &models.Farm{UserID: u.ID, Name: "north", Latitude: 51.25, Longitude: 22.57}
	require.NoError(t, repo.Create(ctx, farm))

	got, err := repo.GetByName(ctx, u.ID, "north")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, farm.ID, got.ID)

	none, err := repo.GetByName(ctx, u.ID, "south")
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.SaveWeather(ctx, &models.FarmWeather{FarmID: farm.ID, Current: "{}", Daily: "{}", RefreshedAt: time.Now()}))
	require.NoError(t, repo.DeleteByName(ctx, u.ID, "north"))

	err = repo.DeleteByName(ctx, u.ID, "north")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Farm not found.", appErr.Message)

	snapshot, err := repo.GetWeather(ctx, farm.ID)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestFarmRepository_SaveWeatherUpserts(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFarmRepository(db)
	ctx := context.Background()

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveWeather(ctx, &models.FarmWeather{FarmID: 7, Current: `{"a":1}`, Daily: `{}`, RefreshedAt: first}))
	require.NoError(t, repo.SaveWeather(ctx, &models.FarmWeather{FarmID: 7, Current: `{"a":2}`, Daily: `{"b":1}`, RefreshedAt: first.Add(time.Hour)}))

	got, err := repo.GetWeather(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"a":2}`, got.Current)
	assert.Equal(t, `{"b":1}`, got.Daily)
	assert.True(t, got.RefreshedAt.Equal(first.Add(time.Hour)))

	var n int64
	require.NoError(t, db.Model(&models.FarmWeather{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestFarmRepository_ListAlertTargets(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	settings := NewSettingsRepository(db)
	repo := NewFarmRepository(db)
	ctx := context.Background()

	a := createUser(t, users, "alice")
	b := createUser(t, users, "bob")
	require.NoError(t, settings.UpdateFCMToken(ctx, a.ID, "tok-a"))
	require.NoError(t, repo.Create(ctx, &models.Farm{UserID: a.ID, Name: "north", Latitude: 1, Longitude: 2}))
	require.NoError(t, repo.Create(ctx, &models.Farm{UserID: b.ID, Name: "south", Latitude: 3, Longitude: 4}))

	targets, err := repo.ListAlertTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "north", targets[0].Name)
	assert.Equal(t, "tok-a", targets[0].FCMToken)
	assert.True(t, targets[0].WeatherNotifications)
	assert.Equal(t, float64(3), targets[1].Latitude)
	assert.Empty(t, targets[1].FCMToken)
}
