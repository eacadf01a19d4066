package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/gostt-bridge/internal/audio"
	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
)

func threeSegments() []engine.Segment {
	return []engine.Segment{
		{Text: " And so my fellow Americans,", Start: 0, End: 2 * time.Second},
		{Text: " ask not", Start: 2 * time.Second, End: 3 * time.Second},
		{Text: " what your country can do for you.", Start: 3 * time.Second, End: 5 * time.Second},
	}
}

func writeSilence(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, audio.WriteWAV(path, make([]float32, n), audio.WhisperSampleRate, 1))
	return path
}

func TestInitializeSuccess(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)
	defer s.Close()

	require.Equal(t, Uninitialized, s.State())
	require.NoError(t, s.Initialize("model.bin"))
	require.Equal(t, Ready, s.State())
	require.True(t, s.Ready())
}

func TestInitializeFailureStaysUninitialized(t *testing.T) {
	eng := &fakeEngine{failPath: "/nonexistent/model.bin"}
	s := New(eng)
	defer s.Close()

	err := s.Initialize("/nonexistent/model.bin")
	require.ErrorIs(t, err, ErrInitialization)
	require.Equal(t, Uninitialized, s.State())

	// Retry with a good path.
	require.NoError(t, s.Initialize("model.bin"))
	require.Equal(t, Ready, s.State())
}

func TestTranscribeBeforeInitialize(t *testing.T) {
	dec := &fakeDecoder{}
	s := New(&fakeEngine{}, WithDecoder(dec))

	text, err := s.Transcribe("audio.wav")
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Empty(t, text)
	require.Zero(t, dec.calls, "nothing is decoded before initialize")
}

func TestTranscribeConcatenatesSegmentsWithoutSeparators(t *testing.T) {
	eng := &fakeEngine{segments: threeSegments()}
	s := New(eng)
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	text, err := s.Transcribe(writeSilence(t, 1600))
	require.NoError(t, err)
	require.Equal(t, " And so my fellow Americans, ask not what your country can do for you.", text)
	require.Equal(t, 1600, eng.contexts[0].lastLen)
}

func TestTranscribeNoSegments(t *testing.T) {
	s := New(&fakeEngine{})
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	text, err := s.Transcribe(writeSilence(t, 160))
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestTranscribeDecodeFailureSkipsEngine(t *testing.T) {
	eng := &fakeEngine{segments: threeSegments()}
	s := New(eng)
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	text, err := s.Transcribe(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, ErrDecode)
	require.Empty(t, text)
	require.Zero(t, eng.fullCalls())

	// A corrupt file behaves the same.
	dec := &fakeDecoder{err: audio.ErrInvalidWAV}
	s2 := New(eng, WithDecoder(dec))
	defer s2.Close()
	require.NoError(t, s2.Initialize("model.bin"))
	_, err = s2.Transcribe("corrupt.wav")
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorIs(t, err, audio.ErrInvalidWAV)
	require.Zero(t, eng.fullCalls())
}

func TestTranscribeInferenceFailure(t *testing.T) {
	eng := &fakeEngine{segments: threeSegments(), fullErr: errors.New("whisper_full returned 7")}
	s := New(eng, WithDecoder(&fakeDecoder{pcm: audio.PCM{Mono: make([]float32, 10)}}))
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	text, err := s.Transcribe("audio.wav")
	require.ErrorIs(t, err, ErrInference)
	require.Empty(t, text, "no partial transcript on failure")
	require.Equal(t, Ready, s.State(), "a failed pass keeps the model loaded")
}

func TestTranscribeCancelled(t *testing.T) {
	eng := &fakeEngine{segments: threeSegments()}
	s := New(eng, WithDecoder(&fakeDecoder{pcm: audio.PCM{Mono: make([]float32, 10)}}))
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.TranscribeContext(ctx, "audio.wav")
	require.ErrorIs(t, err, ErrInference)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTranscribePassesDerivedParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.TranscriptionConfig)
		check  func(t *testing.T, p engine.Params)
	}{
		{
			name:   "default greedy",
			modify: func(*config.TranscriptionConfig) {},
			check: func(t *testing.T, p engine.Params) {
				assert.Equal(t, engine.Greedy, p.Strategy)
				assert.Equal(t, engine.DefaultTemperatureInc, p.TemperatureInc)
			},
		},
		{
			name:   "beam search",
			modify: func(c *config.TranscriptionConfig) { c.BeamSize = 5 },
			check: func(t *testing.T, p engine.Params) {
				assert.Equal(t, engine.BeamSearch, p.Strategy)
				assert.Equal(t, 5, p.BeamSize)
			},
		},
		{
			name: "no fallback",
			modify: func(c *config.TranscriptionConfig) {
				c.NoFallback = true
				c.EntropyThreshold = 5
				c.LogProbThreshold = 1
			},
			check: func(t *testing.T, p engine.Params) {
				assert.Equal(t, float32(0), p.TemperatureInc)
			},
		},
		{
			name:   "word timestamps",
			modify: func(c *config.TranscriptionConfig) { c.OutputWts = true },
			check: func(t *testing.T, p engine.Params) {
				assert.Equal(t, 60, p.MaxLen)
				assert.True(t, p.TokenTimestamps)
			},
		},
		{
			name: "explicit max len",
			modify: func(c *config.TranscriptionConfig) {
				c.OutputWts = true
				c.MaxLen = 20
			},
			check: func(t *testing.T, p engine.Params) {
				assert.Equal(t, 20, p.MaxLen)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultTranscription()
			tt.modify(&cfg)

			eng := &fakeEngine{}
			s := New(eng, WithConfig(cfg), WithDecoder(&fakeDecoder{pcm: audio.PCM{Mono: make([]float32, 4)}}))
			defer s.Close()
			require.NoError(t, s.Initialize("model.bin"))

			_, err := s.Transcribe("audio.wav")
			require.NoError(t, err)
			tt.check(t, eng.contexts[0].lastParams)
		})
	}
}

func TestDiarizeRequestsStereo(t *testing.T) {
	cfg := config.DefaultTranscription()
	cfg.Diarize = true

	dec := &fakeDecoder{pcm: audio.PCM{Mono: make([]float32, 4)}}
	s := New(&fakeEngine{}, WithConfig(cfg), WithDecoder(dec))
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	_, err := s.Transcribe("audio.wav")
	require.NoError(t, err)
	require.True(t, dec.wantStereo)

	s2 := New(&fakeEngine{}, WithDecoder(dec))
	defer s2.Close()
	require.NoError(t, s2.Initialize("model.bin"))
	_, err = s2.Transcribe("audio.wav")
	require.NoError(t, err)
	require.False(t, dec.wantStereo)
}

func TestTranscribeSegmentsWithSpeakers(t *testing.T) {
	cfg := config.DefaultTranscription()
	cfg.Diarize = true

	// One second per channel-dominant half.
	n := 2 * engine.SampleRate
	left := make([]float32, n)
	right := make([]float32, n)
	for i := 0; i < n/2; i++ {
		left[i] = 0.5
	}
	for i := n / 2; i < n; i++ {
		right[i] = 0.5
	}

	eng := &fakeEngine{segments: []engine.Segment{
		{Text: "left", Start: 0, End: time.Second},
		{Text: "right", Start: time.Second, End: 2 * time.Second},
	}}
	dec := &fakeDecoder{pcm: audio.PCM{Mono: make([]float32, n), Stereo: [][]float32{left, right}}}
	s := New(eng, WithConfig(cfg), WithDecoder(dec))
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	segs, err := s.TranscribeSegments(context.Background(), "audio.wav")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "0", segs[0].Speaker)
	assert.Equal(t, "1", segs[1].Speaker)
}

func TestCloseReleasesHandleExactlyOnce(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)
	require.NoError(t, s.Initialize("model.bin"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	opens, closes := eng.counts()
	require.Equal(t, 1, opens)
	require.Equal(t, 1, closes)
	require.Equal(t, 1, eng.contexts[0].closed)
}

func TestCloseWithoutInitialize(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng)
	require.NoError(t, s.Close())

	_, closes := eng.counts()
	require.Zero(t, closes)
}

func TestUseAfterClose(t *testing.T) {
	s := New(&fakeEngine{})
	require.NoError(t, s.Initialize("model.bin"))
	require.NoError(t, s.Close())

	_, err := s.Transcribe("audio.wav")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Initialize("model.bin"), ErrClosed)
	require.Equal(t, Uninitialized, s.State())
}

func TestReinitializeReleasesPreviousHandle(t *testing.T) {
	eng := &fakeEngine{failPath: "bad.bin"}
	s := New(eng)
	require.NoError(t, s.Initialize("a.bin"))
	require.NoError(t, s.Initialize("b.bin"))

	opens, closes := eng.counts()
	require.Equal(t, 2, opens)
	require.Equal(t, 1, closes)
	require.Equal(t, 1, eng.contexts[0].closed)
	require.Zero(t, eng.contexts[1].closed)

	// A failed re-initialize still drops the old handle.
	require.ErrorIs(t, s.Initialize("bad.bin"), ErrInitialization)
	require.Equal(t, Uninitialized, s.State())
	_, closes = eng.counts()
	require.Equal(t, 2, closes)

	require.NoError(t, s.Close())
	_, closes = eng.counts()
	require.Equal(t, 2, closes)
}

func TestConcurrentTranscribeIsSerialized(t *testing.T) {
	eng := &fakeEngine{segments: threeSegments()}
	s := New(eng, WithDecoder(&fakeDecoder{pcm: audio.PCM{Mono: make([]float32, 4)}}))
	defer s.Close()
	require.NoError(t, s.Initialize("model.bin"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := s.Transcribe("audio.wav")
			assert.NoError(t, err)
			assert.Equal(t, " And so my fellow Americans, ask not what your country can do for you.", text)
		}()
	}
	wg.Wait()
	require.Equal(t, 8, eng.fullCalls())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "ready", Ready.String())
}
