package service

import (
	"context"
	"testing"

	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFarmService_CreateFarm(t *testing.T) {
	t.Parallel()

	t.Run("stores trimmed name", func(t *testing.T) {
		t.Parallel()
		repo := noopFarmRepo()
		var created *models.Farm
		repo.createFn = func(_ context.Context, f *models.Farm) error {
			f.ID = 11
			created = f
			return nil
		}
		farm, err := NewFarmService(repo).CreateFarm(context.Background(), CreateFarmInput{
			UserID: 2, Name: "  North field ", Latitude: 51.25, Longitude: 22.57,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(11), farm.ID)
		assert.Equal(t, "North field", created.Name)
		assert.Equal(t, uint(2), created.UserID)
	})

	t.Run("coordinates validated before anything else", func(t *testing.T) {
		t.Parallel()
		repo := noopFarmRepo()
		repo.getByNameFn = func(_ context.Context, _ uint, _ string) (*models.Farm, error) {
			t.Fatal("GetByName must not be called")
			return nil, nil
		}
		_, err := NewFarmService(repo).CreateFarm(context.Background(), CreateFarmInput{
			UserID: 2, Name: "North", Latitude: 91, Longitude: 0,
		})
		assertAppError(t, err, models.CodeNotFound, "Latitude out of bounds.")
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		t.Parallel()
		repo := noopFarmRepo()
		repo.getByNameFn = func(_ context.Context, _ uint, name string) (*models.Farm, error) {
			return &models.Farm{ID: 1, Name: name}, nil
		}
		_, err := NewFarmService(repo).CreateFarm(context.Background(), CreateFarmInput{
			UserID: 2, Name: "North", Latitude: 10, Longitude: 10,
		})
		assertAppError(t, err, models.CodeConflict, "Farm already exists.")
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		_, err := NewFarmService(noopFarmRepo()).CreateFarm(context.Background(), CreateFarmInput{
			UserID: 2, Name: "   ", Latitude: 10, Longitude: 10,
		})
		assertAppError(t, err, models.CodeValidation, "")
	})
}

func TestFarmService_ListAndDelete(t *testing.T) {
	t.Parallel()

	repo := noopFarmRepo()
	farms, err := NewFarmService(repo).ListFarms(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, farms)
	assert.Empty(t, farms)

	repo.deleteByNameFn = func(_ context.Context, userID uint, name string) error {
		assert.Equal(t, uint(1), userID)
		if name != "North" {
			return models.NewNotFoundMessage("Farm not found.")
		}
		return nil
	}
	svc := NewFarmService(repo)
	require.NoError(t, svc.DeleteFarm(context.Background(), 1, " North "))
	assertAppError(t, svc.DeleteFarm(context.Background(), 1, "South"), models.CodeNotFound, "Farm not found.")
}
