package audio

import "github.com/infernodragon456/travel-chat-app/internal/domain"

// Clip size limits. Recordings under MinClipBytes are treated as empty.
const (
	MinClipBytes = 1000
	MaxClipBytes = 25 << 20
)

// ValidateClip rejects clips that are too small or too large to transcribe.
func ValidateClip(data []byte) error {
	switch {
	case len(data) < MinClipBytes:
		return domain.NewValidationError("audio", "recording is empty or too short")
	case len(data) > MaxClipBytes:
		return domain.NewValidationError("audio", "recording exceeds 25 MiB")
	}
	return nil
}
