package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"farmcast/internal/models"
	"farmcast/internal/notifications"
	"farmcast/internal/push"
	"farmcast/internal/storage"
	"farmcast/internal/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updatePhotoFn   func(context.Context, uint, string) error
	deleteFn        func(context.Context, uint) ([]string, error)
	searchFn        func(context.Context, string, int) ([]models.ProfileSummary, error)
	getAttributesFn func(context.Context, uint) (*models.UserAttributes, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdatePhoto(ctx context.Context, id uint, photo string) error {
	return s.updatePhotoFn(ctx, id, photo)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) ([]string, error) {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) Search(ctx context.Context, query string, limit int) ([]models.ProfileSummary, error) {
	return s.searchFn(ctx, query, limit)
}
func (s *userRepoStub) GetAttributes(ctx context.Context, id uint) (*models.UserAttributes, error) {
	return s.getAttributesFn(ctx, id)
}
func (s *userRepoStub) Recount(context.Context) (int64, error) {
	return 0, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, FirstName: "Jan", LastName: "Kowalski"}, nil
		},
		getByEmailFn:  func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:      func(_ context.Context, _ *models.User) error { return nil },
		updatePhotoFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) ([]string, error) { return nil, nil },
		searchFn:      func(_ context.Context, _ string, _ int) ([]models.ProfileSummary, error) { return nil, nil },
		getAttributesFn: func(_ context.Context, id uint) (*models.UserAttributes, error) {
			return &models.UserAttributes{UserID: id}, nil
		},
	}
}

// farmRepoStub is a stub for repository.FarmRepository.
type farmRepoStub struct {
	listByUserFn       func(context.Context, uint) ([]models.Farm, error)
	getByIDFn          func(context.Context, uint) (*models.Farm, error)
	getByNameFn        func(context.Context, uint, string) (*models.Farm, error)
	createFn           func(context.Context, *models.Farm) error
	deleteByNameFn     func(context.Context, uint, string) error
	listAlertTargetsFn func(context.Context) ([]models.FarmAlertTarget, error)
	getWeatherFn       func(context.Context, uint) (*models.FarmWeather, error)
	saveWeatherFn      func(context.Context, *models.FarmWeather) error
}

func (s *farmRepoStub) ListByUser(ctx context.Context, userID uint) ([]models.Farm, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *farmRepoStub) GetByID(ctx context.Context, id uint) (*models.Farm, error) {
	return s.getByIDFn(ctx, id)
}
func (s *farmRepoStub) GetByName(ctx context.Context, userID uint, name string) (*models.Farm, error) {
	return s.getByNameFn(ctx, userID, name)
}
func (s *farmRepoStub) Create(ctx context.Context, farm *models.Farm) error {
	return s.createFn(ctx, farm)
}
func (s *farmRepoStub) DeleteByName(ctx context.Context, userID uint, name string) error {
	return s.deleteByNameFn(ctx, userID, name)
}
func (s *farmRepoStub) ListAlertTargets(ctx context.Context) ([]models.FarmAlertTarget, error) {
	return s.listAlertTargetsFn(ctx)
}
func (s *farmRepoStub) GetWeather(ctx context.Context, farmID uint) (*models.FarmWeather, error) {
	return s.getWeatherFn(ctx, farmID)
}
func (s *farmRepoStub) SaveWeather(ctx context.Context, snapshot *models.FarmWeather) error {
	return s.saveWeatherFn(ctx, snapshot)
}

func noopFarmRepo() *farmRepoStub {
	return &farmRepoStub{
		listByUserFn: func(_ context.Context, _ uint) ([]models.Farm, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Farm, error) {
			return &models.Farm{ID: id, UserID: 1, Name: "Home", Latitude: 51.25, Longitude: 22.57}, nil
		},
		getByNameFn:        func(_ context.Context, _ uint, _ string) (*models.Farm, error) { return nil, nil },
		createFn:           func(_ context.Context, _ *models.Farm) error { return nil },
		deleteByNameFn:     func(_ context.Context, _ uint, _ string) error { return nil },
		listAlertTargetsFn: func(_ context.Context) ([]models.FarmAlertTarget, error) { return nil, nil },
		getWeatherFn:       func(_ context.Context, _ uint) (*models.FarmWeather, error) { return nil, nil },
		saveWeatherFn:      func(_ context.Context, _ *models.FarmWeather) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, uint) (*models.Post, error)
	deleteFn      func(context.Context, uint) ([]string, error)
	addPhotosFn   func(context.Context, uint, []string) ([]models.PostPhoto, error)
	getPhotoFn    func(context.Context, uint) (*models.PostPhoto, error)
	deletePhotoFn func(context.Context, uint) error
	feedFn        func(context.Context, float64, float64, float64) ([]models.FeedPost, error)
	profileFeedFn func(context.Context, uint) ([]models.FeedPost, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) ([]string, error) {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) AddPhotos(ctx context.Context, postID uint, keys []string) ([]models.PostPhoto, error) {
	return s.addPhotosFn(ctx, postID, keys)
}
func (s *postRepoStub) GetPhoto(ctx context.Context, id uint) (*models.PostPhoto, error) {
	return s.getPhotoFn(ctx, id)
}
func (s *postRepoStub) DeletePhoto(ctx context.Context, id uint) error {
	return s.deletePhotoFn(ctx, id)
}
func (s *postRepoStub) Feed(ctx context.Context, lat, lon, rangeKm float64) ([]models.FeedPost, error) {
	return s.feedFn(ctx, lat, lon, rangeKm)
}
func (s *postRepoStub) ProfileFeed(ctx context.Context, userID uint) ([]models.FeedPost, error) {
	return s.profileFeedFn(ctx, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		deleteFn: func(_ context.Context, _ uint) ([]string, error) { return nil, nil },
		addPhotosFn: func(_ context.Context, postID uint, keys []string) ([]models.PostPhoto, error) {
			out := make([]models.PostPhoto, len(keys))
			for i, k := range keys {
				out[i] = models.PostPhoto{ID: uint(i + 1), PostID: postID, Photo: k}
			}
			return out, nil
		},
		getPhotoFn:    func(_ context.Context, id uint) (*models.PostPhoto, error) { return &models.PostPhoto{ID: id}, nil },
		deletePhotoFn: func(_ context.Context, _ uint) error { return nil },
		feedFn:        func(_ context.Context, _, _, _ float64) ([]models.FeedPost, error) { return nil, nil },
		profileFeedFn: func(_ context.Context, _ uint) ([]models.FeedPost, error) { return nil, nil },
	}
}

// interactionRepoStub is a stub for repository.InteractionRepository.
type interactionRepoStub struct {
	followFn   func(context.Context, uint, uint) (bool, error)
	unfollowFn func(context.Context, uint, uint) (bool, error)
	existsFn   func(context.Context, uint, uint) (bool, error)
}

func (s *interactionRepoStub) Follow(ctx context.Context, follower, followed uint) (bool, error) {
	return s.followFn(ctx, follower, followed)
}
func (s *interactionRepoStub) Unfollow(ctx context.Context, follower, followed uint) (bool, error) {
	return s.unfollowFn(ctx, follower, followed)
}
func (s *interactionRepoStub) Exists(ctx context.Context, follower, followed uint) (bool, error) {
	return s.existsFn(ctx, follower, followed)
}

func noopInteractionRepo() *interactionRepoStub {
	return &interactionRepoStub{
		followFn:   func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unfollowFn: func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		existsFn:   func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// settingsRepoStub is a stub for repository.SettingsRepository.
type settingsRepoStub struct {
	getFn                 func(context.Context, uint) (*models.Settings, error)
	updateNotificationsFn func(context.Context, uint, bool, *bool) error
	updateFCMTokenFn      func(context.Context, uint, string) error
	updateTempRangeFn     func(context.Context, uint, *float64, *float64) error
}

func (s *settingsRepoStub) Get(ctx context.Context, userID uint) (*models.Settings, error) {
	return s.getFn(ctx, userID)
}
func (s *settingsRepoStub) UpdateNotifications(ctx context.Context, userID uint, news bool, weather *bool) error {
	return s.updateNotificationsFn(ctx, userID, news, weather)
}
func (s *settingsRepoStub) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	return s.updateFCMTokenFn(ctx, userID, token)
}
func (s *settingsRepoStub) UpdateTemperatureRange(ctx context.Context, userID uint, minTemp, maxTemp *float64) error {
	return s.updateTempRangeFn(ctx, userID, minTemp, maxTemp)
}
func (s *settingsRepoStub) NewsRecipients(context.Context, uint) ([]models.Settings, error) {
	return nil, nil
}

// notifierStub records notifications instead of sending them.
type notifierStub struct {
	mu        sync.Mutex
	users     []uint
	devices   []string
	followers []uint
	messages  []push.Message
	userErr   error
	deviceErr error
}

func (n *notifierStub) NotifyUser(_ context.Context, userID uint, _ notifications.Category, msg push.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.messages = append(n.messages, msg)
	return n.userErr
}

func (n *notifierStub) NotifyDevice(_ context.Context, token string, _ bool, msg push.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deviceErr != nil {
		return n.deviceErr
	}
	n.devices = append(n.devices, token)
	n.messages = append(n.messages, msg)
	return nil
}

func (n *notifierStub) NotifyFollowersAsync(_ context.Context, authorID uint, msg push.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.followers = append(n.followers, authorID)
	n.messages = append(n.messages, msg)
}

// providerStub is a stub WeatherProvider that counts calls.
type providerStub struct {
	mu      sync.Mutex
	calls   map[string]int
	current func(float64, float64) (*weather.Current, error)
	daily   func(float64, float64) (*weather.Daily, error)
}

func newProviderStub() *providerStub {
	return &providerStub{
		calls: map[string]int{},
		current: func(lat, lon float64) (*weather.Current, error) {
			return &weather.Current{Weather: weather.Location{Name: "Lublin", CoordLat: lat, CoordLon: lon}}, nil
		},
		daily: func(lat, lon float64) (*weather.Daily, error) {
			return &weather.Daily{
				Weather: weather.Location{Name: "Lublin", CoordLat: lat, CoordLon: lon},
				Variables: []weather.DailyVariables{
					{TempDay: 10, TempNight: 2, WeatherDescription: "clear sky"},
					{TempDay: 12.5, TempNight: 3, WeatherDescription: "LIGHT rain"},
				},
			}, nil
		},
	}
}

func (p *providerStub) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *providerStub) inc(name string) {
	p.mu.Lock()
	p.calls[name]++
	p.mu.Unlock()
}

func (p *providerStub) Current(_ context.Context, lat, lon float64) (*weather.Current, error) {
	p.inc("current")
	return p.current(lat, lon)
}

func (p *providerStub) Hourly(_ context.Context, lat, lon float64) (*weather.Hourly, error) {
	p.inc("hourly")
	return &weather.Hourly{Weather: weather.Location{CoordLat: lat, CoordLon: lon}}, nil
}

func (p *providerStub) Daily(_ context.Context, lat, lon float64) (*weather.Daily, error) {
	p.inc("daily")
	return p.daily(lat, lon)
}

// memoryStorage is an in-memory storage.Storage.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Write(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memoryStorage) Read(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// assertAppError asserts that err is an AppError with the given code and message.
func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}
