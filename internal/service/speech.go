package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/infernodragon456/travel-chat-app/internal/audio"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/metrics"
)

// Transcribe validates, normalizes and transcribes a recorded clip.
// Clips that cannot be decoded locally are uploaded unchanged.
func (s *Service) Transcribe(ctx context.Context, clip []byte, filename, contentType string, locale domain.Locale) (string, error) {
	if err := audio.ValidateClip(clip); err != nil {
		return "", err
	}

	upload := clip
	normalized, err := audio.Normalize(clip, contentType)
	switch {
	case err == nil:
		upload = normalized
		filename = "recording.wav"
	case errors.Is(err, audio.ErrUnsupportedFormat):
		s.logger.Debug().Str("content_type", contentType).Msg("uploading clip without conversion")
	default:
		s.logger.Warn().Err(err).Str("content_type", contentType).Msg("audio conversion failed, uploading original")
	}

	text, err := s.stt.Transcribe(ctx, upload, filename, locale)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			metrics.ProviderFailures.WithLabelValues("stt").Inc()
		}
		s.logger.Warn().Err(err).Int("bytes", len(upload)).Msg("transcription failed")
		return "", err
	}
	return text, nil
}

// Speak synthesizes text with the cloud voice. Provider problems are not
// errors: they produce a response asking the client to use its local voice.
func (s *Service) Speak(ctx context.Context, text string, locale domain.Locale) (*domain.SpeakResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "is required")
	}

	mp3, err := s.tts.Synthesize(ctx, text, locale)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return &domain.SpeakResponse{Error: "TTS service not configured", Fallback: true}, nil
		}
		metrics.ProviderFailures.WithLabelValues("tts").Inc()
		s.logger.Warn().Err(err).Msg("speech synthesis failed")
		return &domain.SpeakResponse{Error: "TTS provider error", Fallback: true}, nil
	}
	if len(mp3) == 0 {
		return &domain.SpeakResponse{Error: "TTS returned no audio", Fallback: true}, nil
	}

	return &domain.SpeakResponse{AudioContent: base64.StdEncoding.EncodeToString(mp3)}, nil
}
