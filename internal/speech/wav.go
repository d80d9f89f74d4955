package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// wavFormat is the subset of the RIFF fmt chunk the player needs.
type wavFormat struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

// parseWAV walks the RIFF chunks and returns the format and raw PCM.
func parseWAV(wav []byte) (wavFormat, []byte, error) {
	format := wavFormat{Channels: ChannelCount, SampleRate: SampleRate, BitDepth: BitDepth}
	if len(wav) < 44 {
		return format, nil, errors.New("wav data too short")
	}

	// Verify RIFF header.
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return format, nil, errors.New("not a valid WAV file")
	}

	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if body+16 <= len(wav) {
				format.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
				format.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
				format.BitDepth = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			}
		case "data":
			end := body + chunkSize
			if end > len(wav) || chunkSize == 0 {
				// Streaming writers leave the size unset.
				end = len(wav)
			}
			return format, wav[body:end], nil
		}

		pos = body + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return format, nil, errors.New("data chunk not found in WAV")
}

// encodeWAV wraps 16-bit mono PCM samples in a RIFF header.
func encodeWAV(samples []int16, sampleRate int) []byte {
	dataLen := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// toPlayback converts 16-bit PCM of any channel count and rate to mono
// at the player's rate, using linear interpolation.
func toPlayback(format wavFormat, pcm []byte) ([]byte, error) {
	if format.BitDepth != 16 {
		return nil, errors.New("only 16-bit PCM is supported")
	}
	if format.SampleRate == SampleRate && format.Channels == ChannelCount {
		return pcm, nil
	}
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}

	frames := len(pcm) / (2 * channels)
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += float64(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
		mono[i] = sum / float64(channels)
	}
	if frames == 0 {
		return nil, nil
	}

	ratio := float64(format.SampleRate) / float64(SampleRate)
	outLen := int(float64(frames) / ratio)
	out := make([]byte, outLen*2)
	for i := 0; i < outLen; i++ {
		src := float64(i) * ratio
		j := int(src)
		frac := src - float64(j)
		v := mono[j]
		if j+1 < frames {
			v += (mono[j+1] - v) * frac
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out, nil
}
