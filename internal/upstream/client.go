// Package upstream performs JSON GET requests against third-party providers and
// maps their failures onto the API's error categories.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"farmcast/internal/models"
	"farmcast/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Failure labels returned to API clients.
const (
	LabelConnection = "Error Connecting"
	LabelTimeout    = "Timeout Error"
	LabelOther      = "Something went wrong"
)

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Client is a provider-scoped HTTP client.
type Client struct {
	provider    string
	statusLabel string
	httpClient  *http.Client
	headers     http.Header
}

// NewClient builds a client for provider. statusLabel is the message used when the
// provider answers with an error status, e.g. "OpenWeatherMap API Error".
func NewClient(provider, statusLabel string, timeout time.Duration, headers http.Header) *Client {
	return &Client{
		provider:    provider,
		statusLabel: statusLabel,
		httpClient:  &http.Client{Timeout: timeout},
		headers:     headers,
	}
}

// GetJSON fetches rawURL with query and decodes the JSON body into dst.
// endpoint is a low-cardinality label used for metrics and spans.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, query url.Values, dst interface{}) (err error) {
	start := time.Now()
	ctx, span := observability.StartClientSpan(ctx, c.provider, endpoint, attribute.String("http.url", rawURL))
	defer func() {
		observability.ObserveUpstream(c.provider, endpoint, outcome(err), start)
		observability.EndSpan(span, err)
	}()

	u, err := url.Parse(rawURL)
	if err != nil {
		return models.NewUpstreamError(LabelOther, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.NewUpstreamError(LabelOther, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(&StatusError{StatusCode: resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return c.classify(fmt.Errorf("decode %s response: %w", c.provider, err))
	}
	return nil
}

// classify maps a transport error onto one of the four failure categories.
func (c *Client) classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return models.NewUpstreamError(c.statusLabel, err)
	}
	if isTimeout(err) {
		return models.NewUpstreamError(LabelTimeout, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return models.NewUpstreamError(LabelConnection, err)
	}
	return models.NewUpstreamError(LabelOther, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "error"
}
