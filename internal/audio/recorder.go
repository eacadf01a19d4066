package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// ErrBusy is returned when a capture is started while another is running.
var ErrBusy = errors.New("audio: capture already running")

// Recorder captures 32-bit float frames from the default input device.
// Channels are interleaved in the returned samples.
type Recorder struct {
	mctx       *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32

	mu      sync.Mutex
	dev     *malgo.Device
	samples []float32
	limit   int // samples to capture before full is closed; 0 means no limit, -1 reached
	full    chan struct{}
}

// NewRecorder opens an audio context for capture. Call Close when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	if sampleRate == 0 || channels == 0 {
		return nil, fmt.Errorf("audio: invalid capture format %d Hz x %d channels", sampleRate, channels)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &Recorder{mctx: mctx, sampleRate: sampleRate, channels: channels}, nil
}

// SampleRate returns the capture sample rate.
func (r *Recorder) SampleRate() uint32 { return r.sampleRate }

// Channels returns the number of captured channels.
func (r *Recorder) Channels() uint32 { return r.channels }

// Record captures d of audio, or less when ctx is done first, and returns
// what was captured.
func (r *Recorder) Record(ctx context.Context, d time.Duration) ([]float32, error) {
	frames := int(int64(d) * int64(r.sampleRate) / int64(time.Second))
	if frames <= 0 {
		return nil, fmt.Errorf("audio: record duration %s is too short", d)
	}

	full, err := r.start(frames * int(r.channels))
	if err != nil {
		return nil, err
	}

	select {
	case <-full:
	case <-ctx.Done():
	}
	return r.Stop(), nil
}

// Start begins an open-ended capture that runs until Stop.
func (r *Recorder) Start() error {
	_, err := r.start(0)
	return err
}

func (r *Recorder) start(limit int) (<-chan struct{}, error) {
	r.mu.Lock()
	if r.full != nil {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.reset(limit)
	full := r.full
	r.mu.Unlock()

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = r.channels
	cfg.SampleRate = r.sampleRate

	dev, err := malgo.InitDevice(r.mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			r.push(input, int(frameCount*r.channels))
		},
	})
	if err == nil {
		if err = dev.Start(); err != nil {
			dev.Uninit()
			err = fmt.Errorf("starting capture device: %w", err)
		}
	} else {
		err = fmt.Errorf("initializing capture device: %w", err)
	}

	r.mu.Lock()
	if err != nil {
		if r.full == full {
			r.full = nil
		}
		r.mu.Unlock()
		return nil, err
	}
	if r.full != full {
		// Stopped while the device was starting.
		r.mu.Unlock()
		dev.Uninit()
		return full, nil
	}
	r.dev = dev
	r.mu.Unlock()
	return full, nil
}

// reset prepares the buffer for a new capture. r.mu must be held.
func (r *Recorder) reset(limit int) {
	r.samples = r.samples[:0]
	if limit > 0 && cap(r.samples) < limit {
		r.samples = make([]float32, 0, limit)
	}
	r.limit = limit
	r.full = make(chan struct{})
}

// push appends n little-endian float32 samples from data. It runs on the
// device thread.
func (r *Recorder) push(data []byte, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full == nil || r.limit < 0 {
		return
	}
	if r.limit > 0 {
		n = min(n, r.limit-len(r.samples))
	}
	r.samples = appendFloat32LE(r.samples, data, n)
	if r.limit > 0 && len(r.samples) >= r.limit {
		close(r.full)
		r.limit = -1
	}
}

// Stop ends the capture and returns a copy of the captured samples, or nil
// when nothing was being captured.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	if r.full == nil {
		r.mu.Unlock()
		return nil
	}
	dev := r.dev
	r.dev = nil
	if r.limit >= 0 {
		close(r.full)
	}
	r.full = nil
	out := append([]float32(nil), r.samples...)
	r.mu.Unlock()

	// The data callback takes r.mu, so the device is released unlocked.
	if dev != nil {
		dev.Uninit()
	}
	return out
}

// Recording reports whether a capture is running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.full != nil
}

// Close stops any capture and releases the audio context.
func (r *Recorder) Close() error {
	r.Stop()
	if r.mctx == nil {
		return nil
	}
	mctx := r.mctx
	r.mctx = nil
	if err := mctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	mctx.Free()
	return nil
}

// appendFloat32LE decodes up to n little-endian float32 values from data onto
// dst. A trailing partial value is ignored.
func appendFloat32LE(dst []float32, data []byte, n int) []float32 {
	n = min(n, len(data)/4)
	for i := 0; i < n; i++ {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return dst
}
