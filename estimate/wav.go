package estimate

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadWAV decodes a PCM WAV file into mono float64 samples in [-1, 1] and
// returns them with the sample rate. 16-bit integer PCM only; multi-channel
// audio is downmixed by averaging.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening WAV file: %w", err)
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, 0, fmt.Errorf("%w: short RIFF header", ErrInvalidAudio)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidAudio)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		data          []byte
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, fmt.Errorf("reading WAV chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrInvalidAudio, size)
			}
			fmtChunk := make([]byte, size)
			if _, err := io.ReadFull(f, fmtChunk); err != nil {
				return nil, 0, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidAudio)
			}
			format := binary.LittleEndian.Uint16(fmtChunk[0:2])
			if format != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported WAV format %d, need PCM", ErrInvalidAudio, format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
		case "data":
			data = make([]byte, size)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, 0, fmt.Errorf("%w: truncated data chunk", ErrInvalidAudio)
			}
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("skipping WAV chunk %q: %w", id, err)
			}
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				break
			}
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrInvalidAudio)
	}
	if data == nil {
		return nil, 0, fmt.Errorf("%w: missing data chunk", ErrInvalidAudio)
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("%w: %d-bit samples, only 16-bit PCM supported", ErrInvalidAudio, bitsPerSample)
	}

	frameBytes := channels * 2
	frames := len(data) / frameBytes
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			v := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}

	return samples, sampleRate, nil
}
