// Package stt transcribes audio with a hosted Whisper model.
package stt

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

const providerName = "whisper"

// Transcriber turns an audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, locale domain.Locale) (string, error)
}

// WhisperClient calls an OpenAI-compatible audio/transcriptions endpoint.
type WhisperClient struct {
	api    *openai.Client
	model  string
	ready  bool
	logger zerolog.Logger
}

// NewWhisperClient creates a new Whisper client. Without an API key every
// call fails with domain.ErrNotConfigured.
func NewWhisperClient(baseURL, apiKey, model string, timeout time.Duration, logger zerolog.Logger) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &WhisperClient{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		ready:  apiKey != "",
		logger: logger.With().Str("provider", providerName).Logger(),
	}
}

var _ Transcriber = (*WhisperClient)(nil)

// Transcribe uploads the clip and returns the recognized text. The locale
// is only logged; the engine detects the spoken language itself.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string, locale domain.Locale) (string, error) {
	if !c.ready {
		return "", domain.ErrNotConfigured
	}
	if filename == "" {
		filename = "recording.wav"
	}

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", domain.NewProviderError(providerName, apiErr.HTTPStatusCode, err)
		}
		return "", domain.NewProviderError(providerName, 0, err)
	}

	text := strings.TrimSpace(resp.Text)
	c.logger.Debug().
		Int("bytes", len(audio)).
		Str("locale", string(locale)).
		Dur("elapsed", time.Since(start)).
		Int("chars", len(text)).
		Msg("transcription complete")
	return text, nil
}
