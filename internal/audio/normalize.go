package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zaf/g711"
)

// TargetSampleRate is the rate of normalized clips.
const TargetSampleRate = 16000

// telephonyRate is the implied rate of headerless G.711 audio.
const telephonyRate = 8000

// ErrUnsupportedFormat is returned for containers that cannot be decoded
// locally, such as WebM/Opus or MP4/AAC. Callers upload the original bytes.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Normalize converts a clip to mono 16 kHz 16-bit PCM WAV.
func Normalize(data []byte, contentType string) ([]byte, error) {
	var (
		samples []int16
		rate    int
		err     error
	)

	switch {
	case IsWAV(data):
		samples, rate, err = decodeWAV(data)
	case isMimeType(contentType, "audio/basic", "audio/ulaw", "audio/x-mulaw", "audio/pcmu"):
		samples, rate = bytesToSamples(g711.DecodeUlaw(data)), telephonyRate
	case isMimeType(contentType, "audio/x-alaw-basic", "audio/alaw", "audio/pcma"):
		samples, rate = bytesToSamples(g711.DecodeAlaw(data)), telephonyRate
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("audio contains no samples")
	}

	out := resample(samples, rate, TargetSampleRate)
	return EncodeWAV(samplesToBytes(out), TargetSampleRate), nil
}

// decodeWAV returns mono samples and their rate.
func decodeWAV(data []byte) ([]int16, int, error) {
	f, payload, err := ParseWAV(data)
	if err != nil {
		return nil, 0, err
	}

	var interleaved []int16
	switch {
	case f.Tag == formatPCM && f.BitsPerSample == 16:
		interleaved = bytesToSamples(payload)
	case f.Tag == formatPCM && f.BitsPerSample == 8:
		interleaved = make([]int16, len(payload))
		for i, b := range payload {
			interleaved[i] = int16((int(b) - 128) << 8)
		}
	case f.Tag == formatPCM && f.BitsPerSample == 24:
		interleaved = make([]int16, len(payload)/3)
		for i := range interleaved {
			// Keep the two most significant bytes.
			interleaved[i] = int16(binary.LittleEndian.Uint16(payload[i*3+1 : i*3+3]))
		}
	case f.Tag == formatIEEEFloat && f.BitsPerSample == 32:
		interleaved = make([]int16, len(payload)/4)
		for i := range interleaved {
			v := math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4 : i*4+4]))
			interleaved[i] = floatToSample(v)
		}
	case f.Tag == formatMuLaw:
		interleaved = bytesToSamples(g711.DecodeUlaw(payload))
	case f.Tag == formatALaw:
		interleaved = bytesToSamples(g711.DecodeAlaw(payload))
	default:
		return nil, 0, fmt.Errorf("%w: WAV tag %d with %d bits", ErrUnsupportedFormat, f.Tag, f.BitsPerSample)
	}

	return downmix(interleaved, f.Channels), f.SampleRate, nil
}

// downmix averages interleaved channels into one.
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := range frames {
		sum := 0
		for ch := range channels {
			sum += int(samples[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// resample converts between rates with linear interpolation.
func resample(samples []int16, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(math.Round(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac))
	}
	return out
}

func floatToSample(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * math.MaxInt16)
}

func bytesToSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return out
}

func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func isMimeType(contentType string, candidates ...string) bool {
	base, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	base = strings.TrimSpace(base)
	for _, c := range candidates {
		if base == c {
			return true
		}
	}
	return false
}
