// Package geocoding forwards free-text place searches to Nominatim.
package geocoding

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmcast/internal/models"
	"farmcast/internal/upstream"
)

// Place is one search hit.
type Place struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Class       string  `json:"class"`
	Importance  float64 `json:"importance"`
}

// Config holds the Nominatim endpoint.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client searches places by name.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates a geocoding client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewClient(cfg Config) *Client {
	headers := http.Header{}
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    upstream.NewClient("nominatim", "Nominatim API Error", cfg.Timeout, headers),
	}
}

// Search returns the deduplicated places matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search string not correct")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("accept-language", "en")

	var places []Place
	if err := c.http.GetJSON(ctx, "search", c.baseURL+"/search", q, &places); err != nil {
		return nil, err
	}
	return Dedup(places), nil
}

// Dedup drops every place whose (type, display name) pair was already seen,
// keeping the first occurrence and the original order.
func Dedup(places []Place) []Place {
	type key struct{ typ, name string }
	seen := make(map[key]struct{}, len(places))
	out := make([]Place, 0, len(places))
	for _, p := range places {
		k := key{p.Type, p.DisplayName}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
