// Package service implements the server side of a conversation turn.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/geo"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/search"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/stt"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/tts"
	"github.com/infernodragon456/travel-chat-app/internal/config"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/policy"
	"github.com/infernodragon456/travel-chat-app/internal/prompt"
	"github.com/infernodragon456/travel-chat-app/internal/repository"
)

// Geocoder resolves places and their weather.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*geo.Place, error)
	Weather(ctx context.Context, coords domain.Coordinates) ([]byte, error)
}

// Providers groups the third-party collaborators of the service.
type Providers struct {
	LLM    llm.LLMClient
	Geo    Geocoder
	Search search.Provider
	STT    stt.Transcriber
	TTS    tts.Synthesizer
}

type Service struct {
	store        repository.Store
	llmClient    llm.LLMClient
	geo          Geocoder
	search       search.Provider
	stt          stt.Transcriber
	tts          tts.Synthesizer
	composer     *prompt.Composer
	policyEngine *policy.Engine
	config       *config.Config
	logger       zerolog.Logger
}

func New(store repository.Store, providers Providers, composer *prompt.Composer, policyEngine *policy.Engine, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		llmClient:    providers.LLM,
		geo:          providers.Geo,
		search:       providers.Search,
		stt:          providers.STT,
		tts:          providers.TTS,
		composer:     composer,
		policyEngine: policyEngine,
		config:       cfg,
		logger:       logger.With().Str("component", "service").Logger(),
	}
}
