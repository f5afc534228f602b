package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/geo"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

func TestEnrichResolvesWeather(t *testing.T) {
	f := newFixture(t)
	f.llm.Answers[llm.PurposeExtractLocation] = "Kyoto\n"
	f.geo.Places["Kyoto"] = &geo.Place{Name: "Kyoto, Japan", Coordinates: domain.Coordinates{Lat: 35.01, Lon: 135.76}}
	f.geo.WeatherRaw = []byte(`{"current":{"temperature_2m":18.5}}`)

	got := f.svc.Enrich(context.Background(), "", "What should I pack for Kyoto?", domain.LocaleEnglish)

	assert.Equal(t, "Kyoto", got.LocationName)
	require.NotNil(t, got.Coordinates)
	assert.InDelta(t, 35.01, got.Coordinates.Lat, 0.001)
	assert.True(t, got.HasWeather())
	assert.False(t, got.ShouldShowResults)
	assert.Empty(t, got.WebResults)

	reqs := f.llm.RequestsFor(llm.PurposeExtractLocation)
	require.Len(t, reqs, 1)
	assert.Equal(t, "fast-model", reqs[0].Model)
	assert.Contains(t, reqs[0].Messages[0].Content, "What should I pack for Kyoto?")
}

func TestEnrichNoLocation(t *testing.T) {
	f := newFixture(t)

	got := f.svc.Enrich(context.Background(), "", "tell me a joke", domain.LocaleEnglish)

	assert.Empty(t, got.LocationName)
	assert.Nil(t, got.Coordinates)
	assert.False(t, got.HasWeather())
}

func TestEnrichDegradesOnFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantName  string
		wantCoord bool
	}{
		{
			name: "extraction fails",
			setup: func(f *fixture) {
				f.llm.AnswerErrors[llm.PurposeExtractLocation] = errors.New("boom")
			},
		},
		{
			name: "geocoder finds nothing",
			setup: func(f *fixture) {
				f.llm.Answers[llm.PurposeExtractLocation] = "Atlantis"
			},
			wantName: "Atlantis",
		},
		{
			name: "weather fails",
			setup: func(f *fixture) {
				f.llm.Answers[llm.PurposeExtractLocation] = "Osaka"
				f.geo.Places["Osaka"] = &geo.Place{Name: "Osaka", Coordinates: domain.Coordinates{Lat: 34.69, Lon: 135.5}}
				f.geo.WeatherErr = domain.NewProviderError("weather", 500, errors.New("down"))
			},
			wantName:  "Osaka",
			wantCoord: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			got := f.svc.Enrich(context.Background(), "", "weather in the city", domain.LocaleEnglish)

			assert.Equal(t, tt.wantName, got.LocationName)
			assert.Equal(t, tt.wantCoord, got.Coordinates != nil)
			assert.False(t, got.HasWeather())
		})
	}
}

func TestEnrichHonorsBudget(t *testing.T) {
	f := newFixture(t)
	f.cfg.EnrichmentTimeout = 50 * time.Millisecond
	f.llm.Delay = 5 * time.Second
	f.llm.Answers[llm.PurposeClassifySearch] = `{"shouldShowResults": true}`

	start := time.Now()
	got := f.svc.Enrich(context.Background(), "", "weather in Tokyo and latest news", domain.LocaleEnglish)

	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, got.LocationName)
	assert.False(t, got.HasWeather())
	assert.False(t, got.HasResults())
	assert.Zero(t, f.search.CallCount())
}

func TestCleanLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tokyo", "Tokyo"},
		{"  \"Paris\".  ", "Paris"},
		{"NONE", ""},
		{"none", ""},
		{"", ""},
		{"「京都」。", "京都"},
		{"Lisbon\nThe user asked about Lisbon.", "Lisbon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanLocation(tt.in), "input %q", tt.in)
	}
}
