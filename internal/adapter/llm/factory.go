package llm

import (
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/config"
)

// NewLLMClient creates an LLM client based on the configured mode.
// If SORA_MODE=MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(cfg *config.Config, logger zerolog.Logger) LLMClient {
	if cfg.MockMode() {
		logger.Info().Msg("SORA_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if cfg.LLMAPIKey == "" {
		logger.Warn().Msg("no LLM API key configured, replies will fail")
	}
	return NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
}
