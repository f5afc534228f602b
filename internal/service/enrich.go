package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/metrics"
)

// noLocation is the sentinel the extraction prompt asks for.
const noLocation = "NONE"

type weatherOutcome struct {
	location string
	coords   *domain.Coordinates
	weather  []byte
}

type searchOutcome struct {
	show    bool
	results []domain.WebResult
}

// Enrich resolves weather and search context for a user message. Both
// sub-pipelines run concurrently under one budget and degrade to absence on
// any failure, so the result is always usable.
func (s *Service) Enrich(ctx context.Context, turnID, message string, locale domain.Locale) domain.EnrichmentContext {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.EnrichmentTimeout)
	defer cancel()

	var (
		w  weatherOutcome
		sr searchOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w = s.enrichWeather(gctx, turnID, message, locale)
		return nil
	})
	g.Go(func() error {
		sr = s.guardedSearch(gctx, turnID, message, locale)
		return nil
	})
	_ = g.Wait()

	result := domain.EnrichmentContext{
		LocationName:      w.location,
		Coordinates:       w.coords,
		Weather:           w.weather,
		ShouldShowResults: sr.show,
		WebResults:        sr.results,
	}

	s.trace(ctx, turnID, domain.EventTypeEnrichmentDone, domain.EnrichmentDonePayload{
		HasWeather: result.HasWeather(),
		Results:    len(result.WebResults),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return result
}

// enrichWeather runs extraction, geocoding and the weather lookup.
// Any failing stage leaves the remaining fields empty.
func (s *Service) enrichWeather(ctx context.Context, turnID, message string, locale domain.Locale) weatherOutcome {
	start := time.Now()
	var out weatherOutcome
	outcome := "none"
	defer func() {
		metrics.EnrichmentDuration.WithLabelValues("weather", outcome).Observe(time.Since(start).Seconds())
	}()

	name, err := s.extractLocation(ctx, message, locale)
	if err != nil {
		outcome = s.degrade(ctx, "extract_location", err)
		return out
	}
	if name == "" {
		return out
	}
	out.location = name

	place, err := s.geo.Geocode(ctx, name)
	if err != nil {
		s.trace(ctx, turnID, domain.EventTypeLocationResolved, domain.LocationResolvedPayload{Query: name, Error: err.Error()})
		outcome = s.degrade(ctx, "geocoder", err)
		return out
	}
	out.coords = &place.Coordinates
	s.trace(ctx, turnID, domain.EventTypeLocationResolved, domain.LocationResolvedPayload{
		Query:       name,
		Name:        place.Name,
		Coordinates: out.coords,
	})

	weather, err := s.geo.Weather(ctx, place.Coordinates)
	s.trace(ctx, turnID, domain.EventTypeWeatherFetched, domain.WeatherFetchedPayload{Bytes: len(weather), Error: errString(err)})
	if err != nil {
		outcome = s.degrade(ctx, "weather", err)
		return out
	}
	out.weather = weather
	outcome = "ok"
	return out
}

// extractLocation asks the fast model for a place name. An empty name means
// the message mentions no location.
func (s *Service) extractLocation(ctx context.Context, message string, locale domain.Locale) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", nil
	}
	text, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Purpose: llm.PurposeExtractLocation,
		Model:   s.config.LLMFastModel,
		Messages: []llm.Message{
			{Role: "user", Content: s.composer.ExtractLocationPrompt(locale, message)},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return "", err
	}
	return cleanLocation(text), nil
}

// cleanLocation trims model noise and maps the sentinel to "".
func cleanLocation(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.Trim(strings.TrimSpace(line), "\"'`「」.。")
	line = strings.TrimSpace(line)
	if line == "" || strings.EqualFold(line, noLocation) {
		return ""
	}
	return line
}

// degrade logs a failed enrichment stage and returns its metrics outcome.
func (s *Service) degrade(ctx context.Context, stage string, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn().Err(&domain.TimeoutError{Stage: stage}).Msg("enrichment stage timed out")
		return "timeout"
	}
	metrics.ProviderFailures.WithLabelValues(stage).Inc()
	s.logger.Warn().Err(err).Str("stage", stage).Msg("enrichment stage failed")
	return "error"
}
