package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/audio"
	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
)

type fakeEngine struct {
	openErr  error
	segments []engine.Segment
	backend  string
	opened   []string
	params   []engine.Params
}

func (e *fakeEngine) Open(modelPath string) (engine.Context, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opened = append(e.opened, modelPath)
	return &fakeContext{eng: e}, nil
}

type fakeContext struct {
	eng *fakeEngine
}

func (c *fakeContext) Full(ctx context.Context, p engine.Params, _ []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.eng.params = append(c.eng.params, p)
	return nil
}

func (c *fakeContext) NumSegments() int             { return len(c.eng.segments) }
func (c *fakeContext) Segment(i int) engine.Segment { return c.eng.segments[i] }
func (c *fakeContext) Close() error                 { return nil }

func newTestApp(eng *fakeEngine) *appState {
	return &appState{
		cfg:    config.Default(),
		logger: zap.NewNop(),
		engineFn: func(backend string, _ *zap.Logger) (engine.Engine, error) {
			eng.backend = backend
			return eng, nil
		},
		recordFn: func(context.Context, time.Duration, string) error {
			return errors.New("recording not expected")
		},
	}
}

func helloSegments() []engine.Segment {
	return []engine.Segment{
		{Text: " Hello", Start: 0, End: 500 * time.Millisecond},
		{Text: " world.", Start: 500 * time.Millisecond, End: time.Second},
	}
}

func writeTestWAV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, audio.WriteWAV(path, make([]float32, 1600), audio.WhisperSampleRate, 1))
	return path
}

func writeWAVAt(path string) error {
	return audio.WriteWAV(path, make([]float32, 1600), audio.WhisperSampleRate, 1)
}
