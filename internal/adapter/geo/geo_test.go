package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Kyoto", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "SoraAIApp/1.0", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `[{"lat":"35.0116","lon":"135.7681","display_name":"Kyoto, Japan"}]`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL, "SoraAIApp/1.0", time.Second)
	place, err := c.Geocode(context.Background(), "Kyoto")
	require.NoError(t, err)
	assert.Equal(t, "Kyoto, Japan", place.Name)
	assert.InDelta(t, 35.0116, place.Coordinates.Lat, 1e-6)
	assert.InDelta(t, 135.7681, place.Coordinates.Lon, 1e-6)
}

func TestGeocodeNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL, "ua", time.Second)
	_, err := c.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "35.0116", q.Get("latitude"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Contains(t, q.Get("current"), "relative_humidity_2m")
		fmt.Fprint(w, `{"current":{"temperature_2m":21.5}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL, "ua", time.Second)
	body, err := c.Weather(context.Background(), domain.Coordinates{Lat: 35.0116, Lon: 135.7681})
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":{"temperature_2m":21.5}}`, string(body))
}

func TestWeatherProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL, "ua", time.Second)
	_, err := c.Weather(context.Background(), domain.Coordinates{})
	var perr *domain.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "weather", perr.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
}
