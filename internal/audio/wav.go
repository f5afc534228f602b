// Package audio converts recorded clips into canonical mono 16 kHz PCM WAV.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// WAV format tags.
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatALaw       = 6
	formatMuLaw      = 7
	formatExtensible = 0xFFFE
)

// ErrNotWAV is returned when the input has no RIFF/WAVE header.
var ErrNotWAV = errors.New("not a WAV file")

// Format describes the sample layout of a WAV data chunk.
type Format struct {
	Tag           uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// ParseWAV walks the RIFF chunks and returns the format and data payload.
func ParseWAV(data []byte) (Format, []byte, error) {
	var f Format
	if !IsWAV(data) {
		return f, nil, ErrNotWAV
	}

	var payload []byte
	haveFmt := false
	i := 12
	for i+8 <= len(data) {
		chunkID := string(data[i : i+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		start := i + 8
		end := start + chunkSize

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || end > len(data) {
				return f, nil, errors.New("invalid WAV: truncated fmt chunk")
			}
			c := data[start:end]
			f.Tag = binary.LittleEndian.Uint16(c[0:2])
			f.Channels = int(binary.LittleEndian.Uint16(c[2:4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(c[4:8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(c[14:16]))
			if f.Tag == formatExtensible && chunkSize >= 26 {
				f.Tag = binary.LittleEndian.Uint16(c[24:26])
			}
			haveFmt = true
		case "data":
			// Streaming recorders often leave the size unset.
			if end > len(data) || chunkSize == 0 {
				end = len(data)
			}
			payload = data[start:end]
		}

		if payload != nil && haveFmt {
			break
		}
		if chunkSize%2 != 0 {
			end++
		}
		if end <= i {
			break
		}
		i = end
	}

	if !haveFmt {
		return f, nil, errors.New("invalid WAV: fmt chunk not found")
	}
	if payload == nil {
		return f, nil, errors.New("invalid WAV: data chunk not found")
	}
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return f, nil, fmt.Errorf("invalid WAV: %d channels at %d Hz", f.Channels, f.SampleRate)
	}
	return f, payload, nil
}

// EncodeWAV wraps mono 16-bit little-endian PCM in a WAV header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(formatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
