package speech

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/client"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// ErrNoVoice is returned when cloud audio is unavailable and no local voice
// is configured.
var ErrNoVoice = errors.New("no speech output available")

// Cloud requests synthesized audio.
type Cloud interface {
	Speak(ctx context.Context, text string, locale domain.Locale) (*client.Speech, error)
}

// Cache stores synthesized audio per message.
type Cache interface {
	Audio(ctx context.Context, locale domain.Locale, messageID string) ([]byte, bool, error)
	PutAudio(ctx context.Context, locale domain.Locale, messageID string, audio []byte) error
}

// Adapter picks cached audio, fresh cloud audio or the local voice.
type Adapter struct {
	cloud  Cloud
	cache  Cache
	sink   Sink
	voice  LocalVoice
	logger zerolog.Logger
}

// NewAdapter creates an adapter. cache and voice may be nil.
func NewAdapter(cloud Cloud, cache Cache, sink Sink, voice LocalVoice, logger zerolog.Logger) *Adapter {
	return &Adapter{
		cloud:  cloud,
		cache:  cache,
		sink:   sink,
		voice:  voice,
		logger: logger.With().Str("component", "speech").Logger(),
	}
}

// Synthesize prepares a playback for a message. It does not start output.
func (a *Adapter) Synthesize(ctx context.Context, messageID, text string, locale domain.Locale) (*Playback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "is required")
	}

	if a.cache != nil {
		cached, ok, err := a.cache.Audio(ctx, locale, messageID)
		if err != nil {
			a.logger.Warn().Err(err).Str("message_id", messageID).Msg("audio cache read failed")
		} else if ok && len(cached) > 0 && a.sink != nil {
			return newCloudPlayback(messageID, cached, a.sink), nil
		}
	}

	if a.cloud != nil && a.sink != nil {
		sp, err := a.cloud.Speak(ctx, text, locale)
		switch {
		case err != nil:
			a.logger.Warn().Err(err).Msg("cloud speech failed, using local voice")
		case sp.Fallback || len(sp.Audio) == 0:
			a.logger.Info().Str("reason", sp.Reason).Msg("cloud speech unavailable, using local voice")
		default:
			if a.cache != nil {
				if err := a.cache.PutAudio(ctx, locale, messageID, sp.Audio); err != nil {
					a.logger.Warn().Err(err).Str("message_id", messageID).Msg("audio cache write failed")
				}
			}
			return newCloudPlayback(messageID, sp.Audio, a.sink), nil
		}
	}

	if a.voice == nil {
		return nil, ErrNoVoice
	}
	return newLocalPlayback(messageID, text, locale, a.voice), nil
}
