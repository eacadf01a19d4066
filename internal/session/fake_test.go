package session

import (
	"context"
	"errors"
	"sync"

	"github.com/chaz8081/gostt-bridge/internal/audio"
	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// fakeEngine counts context acquisitions and releases.
type fakeEngine struct {
	mu       sync.Mutex
	opens    int
	closes   int
	failPath string
	segments []engine.Segment
	fullErr  error
	contexts []*fakeContext
}

func (e *fakeEngine) Open(modelPath string) (engine.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if modelPath == e.failPath {
		return nil, errors.New("no such model")
	}
	e.opens++
	c := &fakeContext{eng: e, path: modelPath, segments: e.segments, fullErr: e.fullErr}
	e.contexts = append(e.contexts, c)
	return c, nil
}

func (e *fakeEngine) counts() (opens, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens, e.closes
}

func (e *fakeEngine) fullCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.contexts {
		n += c.fullCalls
	}
	return n
}

type fakeContext struct {
	eng      *fakeEngine
	path     string
	segments []engine.Segment
	fullErr  error

	fullCalls  int
	lastParams engine.Params
	lastLen    int
	closed     int
	produced   []engine.Segment
}

func (c *fakeContext) Full(ctx context.Context, p engine.Params, samples []float32) error {
	c.eng.mu.Lock()
	c.fullCalls++
	c.eng.mu.Unlock()

	c.lastParams = p
	c.lastLen = len(samples)
	c.produced = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.fullErr != nil {
		return c.fullErr
	}
	c.produced = c.segments
	return nil
}

func (c *fakeContext) NumSegments() int { return len(c.produced) }

func (c *fakeContext) Segment(i int) engine.Segment { return c.produced[i] }

func (c *fakeContext) Close() error {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()
	c.closed++
	c.eng.closes++
	return nil
}

// fakeDecoder returns fixed samples, or an error, without touching disk.
type fakeDecoder struct {
	pcm        audio.PCM
	err        error
	calls      int
	wantStereo bool
}

func (d *fakeDecoder) Decode(_ string, wantStereo bool) (audio.PCM, error) {
	d.calls++
	d.wantStereo = wantStereo
	if d.err != nil {
		return audio.PCM{}, d.err
	}
	return d.pcm, nil
}
