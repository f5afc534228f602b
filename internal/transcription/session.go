package transcription

import (
	"context"
	"fmt"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// Microphone captures one recording at a time.
type Microphone interface {
	Start(ctx context.Context) error
	// Stop releases the device and returns what was captured.
	Stop() (Clip, error)
}

// Session owns a microphone for single recordings.
type Session struct {
	mic     Microphone
	adapter *Adapter
}

// NewSession creates a session over mic.
func NewSession(mic Microphone, adapter *Adapter) *Session {
	return &Session{mic: mic, adapter: adapter}
}

// Record captures until stop is closed or ctx ends. The microphone is
// stopped on every path.
func (s *Session) Record(ctx context.Context, stop <-chan struct{}) (Clip, error) {
	if err := s.mic.Start(ctx); err != nil {
		return Clip{}, fmt.Errorf("failed to start microphone: %w", err)
	}

	select {
	case <-stop:
	case <-ctx.Done():
		_, _ = s.mic.Stop()
		return Clip{}, ctx.Err()
	}

	clip, err := s.mic.Stop()
	if err != nil {
		return Clip{}, fmt.Errorf("failed to stop microphone: %w", err)
	}
	return clip, nil
}

// RecordAndTranscribe records one clip and transcribes it.
func (s *Session) RecordAndTranscribe(ctx context.Context, stop <-chan struct{}, locale domain.Locale) (string, error) {
	clip, err := s.Record(ctx, stop)
	if err != nil {
		return "", err
	}
	return s.adapter.Transcribe(ctx, clip, locale)
}
