package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRawWAV encodes integer sample data with the given header values.
func writeRawWAV(t *testing.T, data []int, sampleRate, bitDepth, channels, format int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeMono16Bit(t *testing.T) {
	path := writeRawWAV(t, []int{0, 16384, -16384, -32768}, WhisperSampleRate, 16, 1, wavFormatPCM)

	pcm, err := WAVDecoder{}.Decode(path, false)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0.5, -0.5, -1}, pcm.Mono)
	assert.Nil(t, pcm.Stereo)
}

func TestDecodeStereoMixesToMono(t *testing.T) {
	// Interleaved L/R frames.
	path := writeRawWAV(t, []int{16384, 0, -16384, -16384}, WhisperSampleRate, 16, 2, wavFormatPCM)

	pcm, err := WAVDecoder{}.Decode(path, false)
	require.NoError(t, err)
	require.Equal(t, []float32{0.25, -0.5}, pcm.Mono)
	assert.Nil(t, pcm.Stereo, "stereo buffers are only produced on request")
}

func TestDecodeStereoBuffers(t *testing.T) {
	path := writeRawWAV(t, []int{16384, 0, -16384, 8192}, WhisperSampleRate, 16, 2, wavFormatPCM)

	pcm, err := WAVDecoder{}.Decode(path, true)
	require.NoError(t, err)
	require.Len(t, pcm.Stereo, 2)
	assert.Equal(t, []float32{0.5, -0.5}, pcm.Stereo[0])
	assert.Equal(t, []float32{0, 0.25}, pcm.Stereo[1])
	assert.Equal(t, []float32{0.25, -0.125}, pcm.Mono)
}

func TestDecodeStereoRequestedFromMono(t *testing.T) {
	path := writeRawWAV(t, []int{1, 2, 3}, WhisperSampleRate, 16, 1, wavFormatPCM)

	_, err := WAVDecoder{}.Decode(path, true)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeFloat32(t *testing.T) {
	want := []float32{0.125, -0.75, 1}
	data := make([]int, len(want))
	for i, v := range want {
		data[i] = int(int32(math.Float32bits(v)))
	}
	path := writeRawWAV(t, data, WhisperSampleRate, 32, 1, wavFormatFloat)

	pcm, err := WAVDecoder{}.Decode(path, false)
	require.NoError(t, err)
	require.Equal(t, want, pcm.Mono)
}

func TestDecodeRejectsWrongSampleRate(t *testing.T) {
	path := writeRawWAV(t, []int{0, 0}, 44100, 16, 1, wavFormatPCM)

	_, err := WAVDecoder{}.Decode(path, false)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := WAVDecoder{}.Decode(filepath.Join(t.TempDir(), "missing.wav"), false)
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a riff header")), false)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestSampleConverterRejectsUnknownFormats(t *testing.T) {
	_, err := sampleConverter(wavFormatFloat, 64)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = sampleConverter(2, 16)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSampleConverter8Bit(t *testing.T) {
	convert, err := sampleConverter(wavFormatPCM, 8)
	require.NoError(t, err)
	assert.Equal(t, float32(0), convert(128))
	assert.Equal(t, float32(-1), convert(0))
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	in := []float32{0, 0.5, -0.5, 2}

	require.NoError(t, WriteWAV(path, in, WhisperSampleRate, 1))

	pcm, err := WAVDecoder{}.Decode(path, false)
	require.NoError(t, err)
	require.Len(t, pcm.Mono, len(in))
	for i, want := range []float32{0, 0.5, -0.5, 1} {
		assert.InDelta(t, want, pcm.Mono[i], 1.0/16384, "sample %d", i)
	}
}
