package server

import (
	"context"
	"net/http"
	"testing"

	"farmcast/internal/auth"
	"farmcast/internal/cache"
	"farmcast/internal/config"
	"farmcast/internal/geocoding"
	"farmcast/internal/models"
	"farmcast/internal/notifications"
	"farmcast/internal/push"
	"farmcast/internal/service"
	"farmcast/internal/storage"
	"farmcast/internal/weather"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePhoto(ctx context.Context, id uint, photo string) error {
	args := m.Called(ctx, id, photo)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit int) ([]models.ProfileSummary, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProfileSummary), args.Error(1)
}

func (m *MockUserRepository) GetAttributes(ctx context.Context, id uint) (*models.UserAttributes, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAttributes), args.Error(1)
}

func (m *MockUserRepository) Recount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockFarmRepository is a mock of the FarmRepository interface
type MockFarmRepository struct {
	mock.Mock
}

func (m *MockFarmRepository) ListByUser(ctx context.Context, userID uint) ([]models.Farm, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Farm), args.Error(1)
}

func (m *MockFarmRepository) GetByID(ctx context.Context, id uint) (*models.Farm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Farm), args.Error(1)
}

func (m *MockFarmRepository) GetByName(ctx context.Context, userID uint, name string) (*models.Farm, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Farm), args.Error(1)
}

func (m *MockFarmRepository) Create(ctx context.Context, farm *models.Farm) error {
	args := m.Called(ctx, farm)
	return args.Error(0)
}

func (m *MockFarmRepository) DeleteByName(ctx context.Context, userID uint, name string) error {
	args := m.Called(ctx, userID, name)
	return args.Error(0)
}

func (m *MockFarmRepository) ListAlertTargets(ctx context.Context) ([]models.FarmAlertTarget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FarmAlertTarget), args.Error(1)
}

func (m *MockFarmRepository) GetWeather(ctx context.Context, farmID uint) (*models.FarmWeather, error) {
	args := m.Called(ctx, farmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FarmWeather), args.Error(1)
}

func (m *MockFarmRepository) SaveWeather(ctx context.Context, snapshot *models.FarmWeather) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPostRepository) AddPhotos(ctx context.Context, postID uint, keys []string) ([]models.PostPhoto, error) {
	args := m.Called(ctx, postID, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PostPhoto), args.Error(1)
}

func (m *MockPostRepository) GetPhoto(ctx context.Context, id uint) (*models.PostPhoto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostPhoto), args.Error(1)
}

func (m *MockPostRepository) DeletePhoto(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) Feed(ctx context.Context, lat, lon, rangeKm float64) ([]models.FeedPost, error) {
	args := m.Called(ctx, lat, lon, rangeKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedPost), args.Error(1)
}

func (m *MockPostRepository) ProfileFeed(ctx context.Context, userID uint) ([]models.FeedPost, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedPost), args.Error(1)
}

// MockInteractionRepository is a mock of the InteractionRepository interface
type MockInteractionRepository struct {
	mock.Mock
}

func (m *MockInteractionRepository) Follow(ctx context.Context, follower, followed uint) (bool, error) {
	args := m.Called(ctx, follower, followed)
	return args.Bool(0), args.Error(1)
}

func (m *MockInteractionRepository) Unfollow(ctx context.Context, follower, followed uint) (bool, error) {
	args := m.Called(ctx, follower, followed)
	return args.Bool(0), args.Error(1)
}

func (m *MockInteractionRepository) Exists(ctx context.Context, follower, followed uint) (bool, error) {
	args := m.Called(ctx, follower, followed)
	return args.Bool(0), args.Error(1)
}

// MockSettingsRepository is a mock of the SettingsRepository interface
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, userID uint) (*models.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *MockSettingsRepository) UpdateNotifications(ctx context.Context, userID uint, news bool, weather *bool) error {
	args := m.Called(ctx, userID, news, weather)
	return args.Error(0)
}

func (m *MockSettingsRepository) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockSettingsRepository) UpdateTemperatureRange(ctx context.Context, userID uint, minTemp, maxTemp *float64) error {
	args := m.Called(ctx, userID, minTemp, maxTemp)
	return args.Error(0)
}

func (m *MockSettingsRepository) NewsRecipients(ctx context.Context, userID uint) ([]models.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Settings), args.Error(1)
}

// MockWeatherProvider is a mock of the upstream weather client
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) Current(ctx context.Context, lat, lon float64) (*weather.Current, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.Current), args.Error(1)
}

func (m *MockWeatherProvider) Hourly(ctx context.Context, lat, lon float64) (*weather.Hourly, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.Hourly), args.Error(1)
}

func (m *MockWeatherProvider) Daily(ctx context.Context, lat, lon float64) (*weather.Daily, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.Daily), args.Error(1)
}

// MockPlaceSearcher is a mock of the geocoding client
type MockPlaceSearcher struct {
	mock.Mock
}

func (m *MockPlaceSearcher) Search(ctx context.Context, query string) ([]geocoding.Place, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geocoding.Place), args.Error(1)
}

type testDeps struct {
	users        *MockUserRepository
	farms        *MockFarmRepository
	posts        *MockPostRepository
	interactions *MockInteractionRepository
	settings     *MockSettingsRepository
	provider     *MockWeatherProvider
	places       *MockPlaceSearcher
	store        storage.Storage
}

var testConfig = &config.Config{
	Port:                      "8080",
	JWTSecret:                 "server-test-access-secret-32-chars!!",
	JWTRefreshSecret:          "server-test-refresh-secret-32-chars!",
	AccessTokenExpireMinutes:  15,
	RefreshTokenExpireMinutes: 60,
	PhotoMaxUploadMB:          1,
}

// newTestServer wires real services over mock repositories, without Redis.
func newTestServer(t *testing.T) (*Server, *fiber.App, *testDeps) {
	t.Helper()
	cache.SetClient(nil)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	d := &testDeps{
		users:        new(MockUserRepository),
		farms:        new(MockFarmRepository),
		posts:        new(MockPostRepository),
		interactions: new(MockInteractionRepository),
		settings:     new(MockSettingsRepository),
		provider:     new(MockWeatherProvider),
		places:       new(MockPlaceSearcher),
		store:        store,
	}

	tokens := auth.NewTokenManager(testConfig)
	dispatcher := notifications.NewDispatcher(d.settings, push.NewLogSender())
	weatherService := service.NewWeatherService(d.provider, d.places, d.farms, 0)

	s := &Server{
		config:          testConfig,
		tokens:          tokens,
		dispatcher:      dispatcher,
		authService:     service.NewAuthService(d.users, tokens),
		farmService:     service.NewFarmService(d.farms),
		weatherService:  weatherService,
		feedService:     service.NewFeedService(d.posts, d.farms, d.users, store, testConfig.PhotoMaxUploadMB, dispatcher),
		profileService:  service.NewProfileService(d.users, d.farms, d.interactions, store, testConfig.PhotoMaxUploadMB, dispatcher),
		settingsService: service.NewSettingsService(d.settings),
		alertService:    service.NewAlertService(d.farms, weatherService, dispatcher),
	}

	app := fiber.New(fiber.Config{BodyLimit: s.bodyLimit()})
	s.SetupRoutes(app)
	t.Cleanup(dispatcher.Wait)
	return s, app, d
}

// loginAs issues an access token for userID and registers the user lookup
// performed by AuthRequired.
func loginAs(t *testing.T, s *Server, d *testDeps, user *models.User) string {
	t.Helper()
	d.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	pair, err := s.tokens.Issue(user.ID)
	require.NoError(t, err)
	return pair.AccessToken
}

func authorize(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
