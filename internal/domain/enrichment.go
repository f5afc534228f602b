package domain

import "encoding/json"

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EnrichmentContext is the request-scoped situational context of one turn.
// It is never persisted.
type EnrichmentContext struct {
	LocationName      string          `json:"location_name,omitempty"`
	Coordinates       *Coordinates    `json:"coordinates,omitempty"`
	Weather           json.RawMessage `json:"weather,omitempty"`
	ShouldShowResults bool            `json:"should_show_results"`
	WebResults        []WebResult     `json:"web_results,omitempty"`
}

// HasWeather reports whether weather data was resolved.
func (e *EnrichmentContext) HasWeather() bool {
	return len(e.Weather) > 0
}

// HasResults reports whether search results should reach the client.
func (e *EnrichmentContext) HasResults() bool {
	return e.ShouldShowResults && len(e.WebResults) > 0
}
