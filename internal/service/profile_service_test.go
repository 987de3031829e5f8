package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"farmcast/internal/models"
	"farmcast/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_GetProfile(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getAttributesFn = func(_ context.Context, id uint) (*models.UserAttributes, error) {
		return &models.UserAttributes{UserID: id, PostCount: 3, LikeCount: 7}, nil
	}
	farms := noopFarmRepo()
	farms.listByUserFn = func(_ context.Context, _ uint) ([]models.Farm, error) {
		return []models.Farm{{ID: 1, Name: "North"}}, nil
	}
	interactions := noopInteractionRepo()
	interactions.existsFn = func(_ context.Context, follower, followed uint) (bool, error) {
		return follower == 1 && followed == 2, nil
	}
	svc := NewProfileService(users, farms, interactions, newMemoryStorage(), 1, nil)

	view, err := svc.GetProfile(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), view.ID)
	assert.Equal(t, int64(3), view.PostCount)
	assert.Equal(t, int64(7), view.LikeCount)
	assert.Len(t, view.Farms, 1)
	assert.True(t, view.IsFollowing)

	self, err := svc.GetProfile(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.False(t, self.IsFollowing)
}

func TestProfileService_GetProfileMissing(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, nil)
	_, err := svc.GetProfile(context.Background(), 1, 2)
	assertAppError(t, err, models.CodeNotFound, "Profile not found")
}

func TestProfileService_Follow(t *testing.T) {
	t.Parallel()

	t.Run("new follow notifies followed user", func(t *testing.T) {
		t.Parallel()
		n := &notifierStub{}
		svc := NewProfileService(noopUserRepo(), noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, n)
		require.NoError(t, svc.Follow(context.Background(), 1, 2))
		assert.Equal(t, []uint{2}, n.users)
		assert.Equal(t, "Jan Kowalski started following you", n.messages[0].Body)
	})

	t.Run("repeat follow is silent", func(t *testing.T) {
		t.Parallel()
		interactions := noopInteractionRepo()
		interactions.followFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }
		n := &notifierStub{}
		svc := NewProfileService(noopUserRepo(), noopFarmRepo(), interactions, newMemoryStorage(), 1, n)
		require.NoError(t, svc.Follow(context.Background(), 1, 2))
		assert.Empty(t, n.users)
	})

	t.Run("disabled notifications do not fail the follow", func(t *testing.T) {
		t.Parallel()
		n := &notifierStub{userErr: models.NewMethodNotAllowedError("Notifications are disabled for this user")}
		svc := NewProfileService(noopUserRepo(), noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, n)
		require.NoError(t, svc.Follow(context.Background(), 1, 2))
	})

	t.Run("self follow", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(noopUserRepo(), noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, nil)
		assertAppError(t, svc.Follow(context.Background(), 3, 3), models.CodeValidation, "")
	})

	t.Run("unknown profile", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, nil)
		assertAppError(t, svc.Follow(context.Background(), 1, 9), models.CodeNotFound, "Profile not found")
	})
}

func TestProfileService_SearchProfiles(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.searchFn = func(_ context.Context, query string, limit int) ([]models.ProfileSummary, error) {
		assert.Equal(t, "jan kow", query)
		assert.Equal(t, SearchLimit, limit)
		return []models.ProfileSummary{{ID: 1, Name: "Jan Kowalski"}}, nil
	}
	svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, nil)

	out, err := svc.SearchProfiles(context.Background(), " jan kow ")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.SearchProfiles(context.Background(), "")
	assertAppError(t, err, models.CodeValidation, "")
}

func TestProfileService_UpdatePhotoReplacesOldFile(t *testing.T) {
	t.Parallel()

	store := newMemoryStorage()
	require.NoError(t, store.Write(context.Background(), "Profile/old.png", strings.NewReader("old"), 3, "image/png"))

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Photo: "Profile/old.png"}, nil
	}
	var saved string
	users.updatePhotoFn = func(_ context.Context, _ uint, key string) error {
		saved = key
		return nil
	}
	svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), store, 1, nil)

	user, err := svc.UpdatePhoto(context.Background(), 1, PhotoUpload{Filename: "me.png", Content: pngBytes(t)})
	require.NoError(t, err)
	assert.Equal(t, saved, user.Photo)
	assert.True(t, strings.HasPrefix(saved, storage.ProfileDir+"/"))

	ok, err := store.Exists(context.Background(), "Profile/old.png")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.len())
}

func TestProfileService_OpenPhoto(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), newMemoryStorage(), 1, nil)
	_, _, err := svc.OpenPhoto(context.Background(), 1)
	assertAppError(t, err, models.CodeNotFound, "Photo not found")
}

func TestProfileService_DeleteAccount(t *testing.T) {
	t.Parallel()

	store := newMemoryStorage()
	require.NoError(t, store.Write(context.Background(), "Feed/a.png", strings.NewReader("a"), 1, "image/png"))
	require.NoError(t, store.Write(context.Background(), "Profile/b.png", strings.NewReader("b"), 1, "image/png"))

	users := noopUserRepo()
	users.deleteFn = func(_ context.Context, id uint) ([]string, error) {
		if id == 9 {
			return nil, models.NewInternalError(errors.New("db down"))
		}
		return []string{"Feed/a.png", "Profile/b.png"}, nil
	}
	svc := NewProfileService(users, noopFarmRepo(), noopInteractionRepo(), store, 1, nil)

	assertAppError(t, svc.DeleteAccount(context.Background(), 9), models.CodeInternal, "")
	assert.Equal(t, 2, store.len())

	require.NoError(t, svc.DeleteAccount(context.Background(), 1))
	assert.Zero(t, store.len())
}
