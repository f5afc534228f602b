// Package transcription turns recorded clips into text on the client.
package transcription

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/audio"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Clip is a finished recording.
type Clip struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Uploader sends a clip to the cloud engine, usually through the server.
type Uploader interface {
	Transcribe(ctx context.Context, clip []byte, filename, contentType string, locale domain.Locale) (string, error)
}

// Recognizer is an on-device speech recognizer.
type Recognizer interface {
	Recognize(ctx context.Context, clip Clip, locale domain.Locale) (string, error)
}

// Adapter transcribes with the cloud engine and falls back to the local
// recognizer.
type Adapter struct {
	uploader   Uploader
	recognizer Recognizer
	logger     zerolog.Logger
}

// NewAdapter creates an adapter. recognizer may be nil.
func NewAdapter(uploader Uploader, recognizer Recognizer, logger zerolog.Logger) *Adapter {
	return &Adapter{
		uploader:   uploader,
		recognizer: recognizer,
		logger:     logger.With().Str("component", "transcription").Logger(),
	}
}

// Transcribe validates the clip before any network call, converts it to
// canonical WAV when possible and returns the transcript. When both engines
// fail it returns ErrTranscriptionUnavailable.
func (a *Adapter) Transcribe(ctx context.Context, clip Clip, locale domain.Locale) (string, error) {
	if err := audio.ValidateClip(clip.Data); err != nil {
		return "", err
	}

	upload := clip
	if upload.Filename == "" {
		upload.Filename = "recording"
	}
	if wav, err := audio.Normalize(clip.Data, clip.ContentType); err == nil {
		upload = Clip{Data: wav, ContentType: "audio/wav", Filename: "recording.wav"}
	} else if !errors.Is(err, audio.ErrUnsupportedFormat) {
		a.logger.Warn().Err(err).Msg("audio conversion failed, sending original")
	}

	if a.uploader != nil {
		text, err := a.uploader.Transcribe(ctx, upload.Data, upload.Filename, upload.ContentType, locale)
		text = strings.TrimSpace(text)
		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			a.logger.Info().Msg("cloud transcription returned no text")
		} else {
			a.logger.Warn().Err(err).Msg("cloud transcription failed")
		}
	}

	if a.recognizer != nil && ctx.Err() == nil {
		text, err := a.recognizer.Recognize(ctx, clip, locale)
		text = strings.TrimSpace(text)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			a.logger.Warn().Err(err).Msg("local recognition failed")
		}
	}

	return "", domain.ErrTranscriptionUnavailable
}
