package testutil

import (
	"encoding/binary"
	"math"

	"github.com/infernodragon456/travel-chat-app/internal/audio"
)

// SineWAV returns a mono 16-bit WAV tone of the given length.
func SineWAV(sampleRate int, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	pcm := make([]byte, n*2)
	for i := range n {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return audio.EncodeWAV(pcm, sampleRate)
}
