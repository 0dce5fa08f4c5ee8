// Package googlemaps resolves coordinates to place names with the Google
// Maps reverse geocoding API.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the public geocoding endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrUnexpectedResponse is returned for non-200 responses, undecodable bodies
// and responses with fewer than two results.
var ErrUnexpectedResponse = errors.New("unexpected geocoding response")

// Client implements domain.Geocoder. Requests are not retried and results
// are not cached.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a geocoding client. An empty baseURL selects DefaultBaseURL
// and an empty apiKey omits the key parameter.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		breaker: newBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "googlemaps",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("geocoder circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// ReverseGeocode returns the formatted address of the second result for the
// given coordinates. The coordinates are passed through exactly as given.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	params := url.Values{
		"sensor": {"false"},
		"latlng": {lat + "," + lon},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	})
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.GeocodeRequests.WithLabelValues("open").Inc()
		return "", fmt.Errorf("reverse geocode %s,%s: %w", lat, lon, err)
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Debug("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return "", fmt.Errorf("reverse geocode %s,%s: %w", lat, lon, err)
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return out.(string), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, resp.StatusCode, body)
	}

	var geoResp response
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUnexpectedResponse, err)
	}

	// The first result is the street address; the second names the locality.
	if len(geoResp.Results) < 2 {
		return "", fmt.Errorf("%w: %d results (status %q)", ErrUnexpectedResponse, len(geoResp.Results), geoResp.Status)
	}
	return geoResp.Results[1].FormattedAddress, nil
}

// Geocoding API response types.

type response struct {
	Status  string   `json:"status"`
	Results []result `json:"results"`
}

type result struct {
	FormattedAddress string `json:"formatted_address"`
}
