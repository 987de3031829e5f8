package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"farmcast/internal/auth"
	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func jsonRequest(method, target string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(d *testDeps)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "Success",
			body: map[string]string{
				"email": "jan@example.com", "first_name": "Jan", "last_name": "Kowalski", "password": "secret",
			},
			mockSetup: func(d *testDeps) {
				d.users.On("GetByEmail", mock.Anything, "jan@example.com").Return(nil, nil)
				d.users.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Short password",
			body: map[string]string{
				"email": "jan@example.com", "first_name": "Jan", "last_name": "Kowalski", "password": "abc",
			},
			mockSetup:      func(*testDeps) {},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Incorrect password.",
		},
		{
			name: "Email taken",
			body: map[string]string{
				"email": "taken@example.com", "first_name": "Jan", "last_name": "Kowalski", "password": "secret",
			},
			mockSetup: func(d *testDeps) {
				d.users.On("GetByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: 7}, nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Email already taken.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, app, d := newTestServer(t)
			tt.mockSetup(d)

			resp, err := app.Test(jsonRequest(http.MethodPost, "/register", tt.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, resp).Error)
			}
		})
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	_, app, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: 3, Email: "jan@example.com", Password: string(hash)}

	t.Run("JSON credentials", func(t *testing.T) {
		s, app, d := newTestServer(t)
		d.users.On("GetByEmail", mock.Anything, "jan@example.com").Return(user, nil)

		resp, err := app.Test(jsonRequest(http.MethodPost, "/login",
			map[string]string{"email": "jan@example.com", "password": "secret"}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var pair auth.Pair
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
		assert.Equal(t, "bearer", strings.ToLower(pair.TokenType))
		claims, err := s.tokens.ParseAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(3), claims.UserID)
		_, err = s.tokens.ParseRefresh(pair.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("OAuth2 password form", func(t *testing.T) {
		_, app, d := newTestServer(t)
		d.users.On("GetByEmail", mock.Anything, "jan@example.com").Return(user, nil)

		form := url.Values{"username": {"jan@example.com"}, "password": {"secret"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, app, d := newTestServer(t)
		d.users.On("GetByEmail", mock.Anything, "jan@example.com").Return(user, nil)

		resp, err := app.Test(jsonRequest(http.MethodPost, "/login",
			map[string]string{"email": "jan@example.com", "password": "nope"}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Incorrect email or password", decodeError(t, resp).Error)
	})

	t.Run("Missing fields", func(t *testing.T) {
		_, app, _ := newTestServer(t)
		resp, err := app.Test(jsonRequest(http.MethodPost, "/login", map[string]string{"email": "jan@example.com"}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefresh(t *testing.T) {
	s, app, d := newTestServer(t)
	d.users.On("GetByID", mock.Anything, uint(3)).Return(&models.User{ID: 3}, nil)

	pair, err := s.tokens.Issue(3)
	require.NoError(t, err)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": pair.RefreshToken}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// An access token is not accepted as a refresh token.
	resp2, err := app.Test(jsonRequest(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": pair.AccessToken}))
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	s, app, d := newTestServer(t)
	d.users.On("GetByID", mock.Anything, uint(9)).Return(nil, models.NewNotFoundError("User", 9))
	d.farms.On("ListByUser", mock.Anything, uint(1)).Return([]models.Farm{}, nil)
	valid := loginAs(t, s, d, &models.User{ID: 1})

	deletedPair, err := s.tokens.Issue(9)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"deleted user", "Bearer " + deletedPair.AccessToken, http.StatusNotFound},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/farms", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestLogout(t *testing.T) {
	s, app, d := newTestServer(t)
	token := loginAs(t, s, d, &models.User{ID: 1})

	req := authorize(httptest.NewRequest(http.MethodPost, "/logout", nil), token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
