package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3

	// WhisperSampleRate is the sample rate the inference engine expects.
	WhisperSampleRate = 16000
)

var (
	// ErrInvalidWAV is returned when the input is not a readable RIFF/WAVE stream.
	ErrInvalidWAV = errors.New("audio: not a valid WAV file")
	// ErrUnsupportedFormat is returned for WAV encodings the decoder cannot normalize.
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")
)

// PCM holds decoded audio normalized to float32 in [-1, 1].
type PCM struct {
	// Mono is the channel mix passed to the engine.
	Mono []float32
	// Stereo holds the left and right channels when they were requested.
	Stereo [][]float32
}

// Decoder turns an audio file into PCM samples.
type Decoder interface {
	Decode(path string, wantStereo bool) (PCM, error)
}

// WAVDecoder decodes 16kHz mono or stereo WAV files with 8, 16, 24 or 32-bit
// integer samples, or 32-bit IEEE float samples.
type WAVDecoder struct{}

// Decode opens and decodes the WAV file at path. When wantStereo is set the
// source must have two channels.
func (WAVDecoder) Decode(path string, wantStereo bool) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	pcm, err := DecodeWAV(f, wantStereo)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	return pcm, nil
}

// DecodeWAV decodes a WAV stream. See WAVDecoder for the accepted formats.
func DecodeWAV(r io.ReadSeeker, wantStereo bool) (PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return PCM{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return PCM{}, ErrInvalidWAV
	}

	if dec.SampleRate != WhisperSampleRate {
		return PCM{}, fmt.Errorf("%w: sample rate %d, want %d", ErrUnsupportedFormat, dec.SampleRate, WhisperSampleRate)
	}

	channels := int(dec.NumChans)
	if channels != 1 && channels != 2 {
		return PCM{}, fmt.Errorf("%w: %d channels, want 1 or 2", ErrUnsupportedFormat, channels)
	}
	if wantStereo && channels != 2 {
		return PCM{}, fmt.Errorf("%w: stereo samples requested from a %d-channel file", ErrUnsupportedFormat, channels)
	}

	convert, err := sampleConverter(dec.WavAudioFormat, dec.BitDepth)
	if err != nil {
		return PCM{}, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	return splitChannels(buf, channels, wantStereo, convert), nil
}

// sampleConverter returns the function normalizing a decoded sample to float32.
func sampleConverter(format, bitDepth uint16) (func(int) float32, error) {
	switch format {
	case wavFormatPCM:
		switch bitDepth {
		case 8:
			// 8-bit WAV samples are unsigned.
			return func(v int) float32 { return float32(v-128) / 128.0 }, nil
		case 16, 24, 32:
			scale := float32(int64(1) << (bitDepth - 1))
			// The decoder may hand 32-bit samples back unsigned.
			return func(v int) float32 { return float32(int32(v)) / scale }, nil
		}
	case wavFormatFloat:
		if bitDepth == 32 {
			return func(v int) float32 { return math.Float32frombits(uint32(int32(v))) }, nil
		}
	}
	return nil, fmt.Errorf("%w: format %d with %d-bit samples", ErrUnsupportedFormat, format, bitDepth)
}

func splitChannels(buf *goaudio.IntBuffer, channels int, wantStereo bool, convert func(int) float32) PCM {
	frames := len(buf.Data) / channels
	pcm := PCM{Mono: make([]float32, frames)}

	if channels == 1 {
		for i := 0; i < frames; i++ {
			pcm.Mono[i] = convert(buf.Data[i])
		}
		return pcm
	}

	if wantStereo {
		pcm.Stereo = [][]float32{make([]float32, frames), make([]float32, frames)}
	}
	for i := 0; i < frames; i++ {
		l := convert(buf.Data[2*i])
		r := convert(buf.Data[2*i+1])
		pcm.Mono[i] = (l + r) / 2
		if wantStereo {
			pcm.Stereo[0][i] = l
			pcm.Stereo[1][i] = r
		}
	}
	return pcm
}
