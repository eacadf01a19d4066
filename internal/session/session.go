// Package session owns one inference context and runs transcription passes
// over WAV files with it.
//
// A Session starts Uninitialized. Initialize loads a model and moves it to
// Ready; Transcribe is only valid in Ready. Close releases the context and is
// safe to call from any state. Calls on one Session are serialized.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/audio"
	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
)

var (
	// ErrInitialization is returned when the engine cannot load a model.
	ErrInitialization = errors.New("session: failed to initialize model")
	// ErrNotInitialized is returned by Transcribe before a successful Initialize.
	ErrNotInitialized = errors.New("session: not initialized")
	// ErrDecode is returned when the audio file cannot be decoded.
	ErrDecode = errors.New("session: failed to read WAV file")
	// ErrInference is returned when the engine fails to process the audio.
	ErrInference = errors.New("session: failed to process audio")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("session: closed")
)

// State is the lifecycle state of a Session.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the transcription parameters. The engine parameters are
// derived from cfg once, when the Session is built.
func WithConfig(cfg config.TranscriptionConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithDecoder replaces the WAV decoder.
func WithDecoder(d audio.Decoder) Option {
	return func(s *Session) { s.decoder = d }
}

// WithLogger sets the logger. Sessions are silent by default.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session runs transcription passes with a single engine context.
type Session struct {
	id      string
	eng     engine.Engine
	decoder audio.Decoder
	cfg     config.TranscriptionConfig
	params  engine.Params
	logger  *zap.Logger

	mu     sync.Mutex
	handle engine.Context
	closed bool
}

// New builds an uninitialized Session on top of eng.
func New(eng engine.Engine, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		eng:     eng,
		decoder: audio.WAVDecoder{},
		cfg:     config.DefaultTranscription(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.params = engine.NewParams(s.cfg)
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Params returns the effective engine parameters.
func (s *Session) Params() engine.Params { return s.params }

// Config returns the transcription config the session was built with.
func (s *Session) Config() config.TranscriptionConfig { return s.cfg }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return Ready
	}
	return Uninitialized
}

// Ready reports whether the session holds a loaded model.
func (s *Session) Ready() bool { return s.State() == Ready }

// Initialize loads the model at modelPath. A previously loaded model is
// released first, so a failed re-initialize leaves the session Uninitialized.
func (s *Session) Initialize(modelPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.handle != nil {
		s.logger.Debug("releasing previous model before re-initialize")
		if err := s.releaseLocked(); err != nil {
			s.logger.Warn("release previous model", zap.Error(err))
		}
	}

	start := time.Now()
	handle, err := s.eng.Open(modelPath)
	if err != nil {
		s.logger.Debug("model load failed", zap.String("model", modelPath), zap.Error(err))
		return fmt.Errorf("%w %q: %w", ErrInitialization, modelPath, err)
	}
	if handle == nil {
		return fmt.Errorf("%w %q: engine returned no context", ErrInitialization, modelPath)
	}

	s.handle = handle
	s.logger.Debug("model loaded",
		zap.String("model", modelPath),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Transcribe runs one blocking transcription pass over the WAV file at
// audioPath and returns the segment texts concatenated in engine order.
func (s *Session) Transcribe(audioPath string) (string, error) {
	return s.TranscribeContext(context.Background(), audioPath)
}

// TranscribeContext is Transcribe with cancellation. A cancelled pass returns
// an error wrapping both ErrInference and ctx.Err().
func (s *Session) TranscribeContext(ctx context.Context, audioPath string) (string, error) {
	var sb strings.Builder
	err := s.run(ctx, audioPath, func(h engine.Context, _ audio.PCM) {
		n := h.NumSegments()
		for i := 0; i < n; i++ {
			sb.WriteString(h.Segment(i).Text)
		}
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// TranscribeSegments runs a transcription pass and returns the segments with
// their timing. With diarization enabled each segment carries a speaker label
// estimated from the stereo channel energy.
func (s *Session) TranscribeSegments(ctx context.Context, audioPath string) ([]engine.Segment, error) {
	var segments []engine.Segment
	err := s.run(ctx, audioPath, func(h engine.Context, pcm audio.PCM) {
		n := h.NumSegments()
		segments = make([]engine.Segment, 0, n)
		for i := 0; i < n; i++ {
			seg := h.Segment(i)
			if s.cfg.Diarize && len(pcm.Stereo) == 2 {
				seg.Speaker = estimateSpeaker(pcm.Stereo, seg.Start, seg.End)
			}
			segments = append(segments, seg)
		}
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// run decodes audioPath, invokes the engine and hands the finished context to
// collect while the session lock is still held.
func (s *Session) run(ctx context.Context, audioPath string, collect func(engine.Context, audio.PCM)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.handle == nil {
		return ErrNotInitialized
	}

	pcm, err := s.decoder.Decode(audioPath, s.cfg.Diarize)
	if err != nil {
		s.logger.Debug("decode failed", zap.String("audio", audioPath), zap.Error(err))
		return fmt.Errorf("%w %q: %w", ErrDecode, audioPath, err)
	}

	start := time.Now()
	if err := s.handle.Full(ctx, s.params, pcm.Mono); err != nil {
		s.logger.Debug("inference failed", zap.String("audio", audioPath), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInference, err)
	}

	collect(s.handle, pcm)
	s.logger.Debug("transcribed",
		zap.String("audio", audioPath),
		zap.Int("samples", len(pcm.Mono)),
		zap.String("strategy", s.params.Strategy.String()),
		zap.Int("segments", s.handle.NumSegments()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Close releases the model. It is safe to call more than once; the context is
// released only the first time.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return s.releaseLocked()
}

func (s *Session) releaseLocked() error {
	if s.handle == nil {
		return nil
	}
	h := s.handle
	s.handle = nil
	if err := h.Close(); err != nil {
		return fmt.Errorf("session: release model: %w", err)
	}
	return nil
}
