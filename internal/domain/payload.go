package domain

// TurnStartedPayload is the payload of a turn_started event.
type TurnStartedPayload struct {
	Locale   string `json:"locale"`
	Messages int    `json:"messages"`
}

// UserInputPayload is the payload of a user_input event.
type UserInputPayload struct {
	Content string `json:"content"`
}

// LocationResolvedPayload is the payload of a location_resolved event.
type LocationResolvedPayload struct {
	Query       string       `json:"query"`
	Name        string       `json:"name,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// WeatherFetchedPayload is the payload of a weather_fetched event.
type WeatherFetchedPayload struct {
	Bytes int    `json:"bytes"`
	Error string `json:"error,omitempty"`
}

// SearchDecisionPayload is the payload of a search_decision event.
type SearchDecisionPayload struct {
	Classified bool   `json:"classified"`
	Decision   string `json:"decision"`
	Error      string `json:"error,omitempty"`
}

// SearchResultsPayload is the payload of a search_results event.
type SearchResultsPayload struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// EnrichmentDonePayload summarizes the enrichment of a turn.
type EnrichmentDonePayload struct {
	HasWeather bool  `json:"has_weather"`
	Results    int   `json:"results"`
	DurationMs int64 `json:"duration_ms"`
}

// LLMCallStartedPayload is the payload of an llm_call_started event.
type LLMCallStartedPayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Purpose   string `json:"purpose"`
}

// LLMCallDonePayload is the payload of an llm_call_done event.
type LLMCallDonePayload struct {
	RequestID        string `json:"request_id"`
	Model            string `json:"model"`
	LatencyMs        int64  `json:"latency_ms"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	Error            string `json:"error,omitempty"`
}

// TurnDonePayload is the payload of a turn_done event.
type TurnDonePayload struct {
	Chars      int   `json:"chars"`
	Results    int   `json:"results"`
	DurationMs int64 `json:"duration_ms"`
}

// TurnFailedPayload is the payload of a turn_failed event.
type TurnFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
