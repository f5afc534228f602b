// Package tts synthesizes speech with ElevenLabs.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

const providerName = "elevenlabs"

// Voices used per locale.
var localeVoices = map[domain.Locale]string{
	domain.LocaleJapanese: "GxxMAMfQkDlnqjpzjLHH",
	domain.LocaleEnglish:  "pNInz6obpgDQGcFmaJgB",
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, locale domain.Locale) ([]byte, error)
}

// ElevenLabsProvider calls the ElevenLabs text-to-speech API.
type ElevenLabsProvider struct {
	apiKey   string
	endpoint string
	modelID  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewElevenLabsProvider creates a new ElevenLabs provider.
func NewElevenLabsProvider(endpoint, apiKey, modelID string, timeout time.Duration, logger zerolog.Logger) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:   apiKey,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		modelID:  modelID,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("provider", "elevenlabs-tts").Logger(),
	}
}

var _ Synthesizer = (*ElevenLabsProvider)(nil)

// IsAvailable reports whether an API key is configured.
func (p *ElevenLabsProvider) IsAvailable() bool {
	return p.apiKey != ""
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns MP3 audio for text in the locale's voice.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, locale domain.Locale) ([]byte, error) {
	if !p.IsAvailable() {
		return nil, domain.ErrNotConfigured
	}

	voice, ok := localeVoices[locale]
	if !ok {
		voice = localeVoices[domain.DefaultLocale]
	}

	body, err := sonic.Marshal(synthesizeBody{
		Text:    text,
		ModelID: p.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", p.endpoint, voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)
	httpReq.Header.Set("Accept", "audio/mpeg")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(providerName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(msg))))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(providerName, resp.StatusCode, err)
	}

	p.logger.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Int("bytes", len(audio)).
		Dur("elapsed", time.Since(start)).
		Msg("synthesis complete")
	return audio, nil
}
