// Package weather is the OpenWeatherMap gateway. Responses are flattened and
// projected onto fixed location and sample field sets.
package weather

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"farmcast/internal/models"
	"farmcast/internal/upstream"
	"farmcast/internal/validation"
)

const provider = "openweathermap"

// Config holds the provider endpoints and credentials.
type Config struct {
	APIKey  string
	BaseURL string
	ProURL  string
	Timeout time.Duration
}

// Client calls the current, hourly and daily endpoints.
type Client struct {
	apiKey  string
	baseURL string
	proURL  string
	http    *upstream.Client
}

// NewClient creates a weather client.
func NewClient(cfg Config) *Client {
	proURL := cfg.ProURL
	if proURL == "" {
		proURL = cfg.BaseURL
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		proURL:  strings.TrimRight(proURL, "/"),
		http:    upstream.NewClient(provider, "OpenWeatherMap API Error", cfg.Timeout, http.Header{}),
	}
}

func (c *Client) query(lat, lon float64, extra ...string) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	return q
}

func (c *Client) fetch(ctx context.Context, endpoint, rawURL string, q url.Values) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := c.http.GetJSON(ctx, endpoint, rawURL, q, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Current returns the weather at the given point right now.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	raw, err := c.fetch(ctx, "current", c.baseURL+"/data/2.5/weather", c.query(lat, lon))
	if err != nil {
		return nil, err
	}

	flat := Flatten(raw)
	out := &Current{}
	if err := project(flat, &out.Weather); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := project(flat, &out.Variables); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// Hourly returns the next 24 hourly samples.
func (c *Client) Hourly(ctx context.Context, lat, lon float64) (*Hourly, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	raw, err := c.fetch(ctx, "hourly", c.proURL+"/data/2.5/forecast/hourly", c.query(lat, lon, "cnt", "24"))
	if err != nil {
		return nil, err
	}

	out := &Hourly{Variables: []Variables{}}
	for _, sample := range samples(raw) {
		var v Variables
		if err := project(sample, &v); err != nil {
			return nil, models.NewInternalError(err)
		}
		out.Variables = append(out.Variables, v)
	}
	if err := project(flattenForecastLocation(raw), &out.Weather); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// Daily returns the 16 day forecast.
func (c *Client) Daily(ctx context.Context, lat, lon float64) (*Daily, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	raw, err := c.fetch(ctx, "daily", c.baseURL+"/data/2.5/forecast/daily", c.query(lat, lon, "cnt", "16"))
	if err != nil {
		return nil, err
	}

	out := &Daily{Variables: []DailyVariables{}}
	for _, sample := range samples(raw) {
		var v DailyVariables
		if err := project(sample, &v); err != nil {
			return nil, models.NewInternalError(err)
		}
		out.Variables = append(out.Variables, v)
	}
	if err := project(flattenForecastLocation(raw), &out.Weather); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
