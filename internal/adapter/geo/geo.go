// Package geo resolves place names to coordinates and fetches weather.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// ErrNotFound is returned when the geocoder has no match for a place.
var ErrNotFound = errors.New("place not found")

// Place is a geocoded location.
type Place struct {
	Name        string
	Coordinates domain.Coordinates
}

// Client calls Nominatim for geocoding and Open-Meteo for weather.
type Client struct {
	httpClient  *http.Client
	geocoderURL string
	weatherURL  string
	userAgent   string
}

// NewClient creates a new geo client.
func NewClient(geocoderURL, weatherURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		geocoderURL: geocoderURL,
		weatherURL:  weatherURL,
		userAgent:   userAgent,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for a free-text place name.
func (c *Client) Geocode(ctx context.Context, name string) (*Place, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")

	body, err := c.get(ctx, "geocoder", c.geocoderURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var results []nominatimResult
	if err := sonic.Unmarshal(body, &results); err != nil {
		return nil, domain.NewProviderError("geocoder", 0, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return nil, domain.NewProviderError("geocoder", 0, fmt.Errorf("invalid coordinates %q,%q", results[0].Lat, results[0].Lon))
	}

	display := results[0].DisplayName
	if display == "" {
		display = name
	}
	return &Place{Name: display, Coordinates: domain.Coordinates{Lat: lat, Lon: lon}}, nil
}

// Weather fetches current conditions and the daily forecast.
// The payload is returned as-is.
func (c *Client) Weather(ctx context.Context, coords domain.Coordinates) ([]byte, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")

	body, err := c.get(ctx, "weather", c.weatherURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !sonic.Valid(body) {
		return nil, domain.NewProviderError("weather", 0, errors.New("response is not valid JSON"))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, provider, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// Nominatim rejects requests without an identifying agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(provider, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewProviderError(provider, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError(provider, resp.StatusCode, fmt.Errorf("unexpected response: %s", truncate(string(body), 200)))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
