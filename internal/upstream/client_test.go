package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireLabel(t *testing.T, err error, label string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, models.CodeUpstream, appErr.Code)
	assert.Equal(t, label, appErr.Message)
}

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "farmcast-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1.5", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"name":"Lublin"}`))
	}))
	defer srv.Close()

	c := NewClient("test", "Test API Error", time.Second, http.Header{"User-Agent": {"farmcast-test"}})
	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSON(context.Background(), "search", srv.URL+"/x", url.Values{"lat": {"1.5"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Lublin", out.Name)
}

func TestGetJSON_Failures(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewClient("test", "Test API Error", time.Second, nil)
		var out map[string]any
		requireLabel(t, c.GetJSON(context.Background(), "x", srv.URL, nil, &out), "Test API Error")
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		c := NewClient("test", "Test API Error", 50*time.Millisecond, nil)
		var out map[string]any
		requireLabel(t, c.GetJSON(context.Background(), "x", srv.URL, nil, &out), LabelTimeout)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := srv.URL
		srv.Close()

		c := NewClient("test", "Test API Error", time.Second, nil)
		var out map[string]any
		requireLabel(t, c.GetJSON(context.Background(), "x", addr, nil, &out), LabelConnection)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		c := NewClient("test", "Test API Error", time.Second, nil)
		var out map[string]any
		requireLabel(t, c.GetJSON(context.Background(), "x", srv.URL, nil, &out), LabelOther)
	})
}
