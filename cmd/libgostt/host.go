package main

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
	"github.com/chaz8081/gostt-bridge/internal/logging"
	"github.com/chaz8081/gostt-bridge/internal/session"
	"github.com/chaz8081/gostt-bridge/internal/transcribe"
)

// host is the object a foreign caller holds: one session plus the message of
// the last failed call, since C callers only see a bool or NULL.
type host struct {
	sess *session.Session

	mu      sync.Mutex
	lastErr string
}

// newHost builds a host from the config file at configPath, or from the
// defaults when configPath is empty.
func newHost(configPath string, engineFn func(string, *zap.Logger) (engine.Engine, error)) (*host, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return nil, err
	}

	eng, err := engineFn(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	return &host{
		sess: session.New(eng, session.WithConfig(cfg.Transcription), session.WithLogger(logger)),
	}, nil
}

// createErr keeps why the last gostt_new failed. There is no handle to hang it
// on, so C callers read it with gostt_last_error(0).
var createErr struct {
	sync.Mutex
	msg string
}

// createHost wraps newHost and records its outcome in createErr. A success
// clears the previous failure.
func createHost(configPath string, engineFn func(string, *zap.Logger) (engine.Engine, error)) (*host, error) {
	h, err := newHost(configPath, engineFn)

	createErr.Lock()
	defer createErr.Unlock()
	if err != nil {
		createErr.msg = err.Error()
		return nil, err
	}
	createErr.msg = ""
	return h, nil
}

func lastCreateError() string {
	createErr.Lock()
	defer createErr.Unlock()
	return createErr.msg
}

func defaultHost(configPath string) (*host, error) {
	return createHost(configPath, transcribe.New)
}

func (h *host) initialize(modelPath string) bool {
	return h.record(h.sess.Initialize(modelPath))
}

// transcribe returns the transcript, or ok == false with the reason kept for
// lastError.
func (h *host) transcribe(audioPath string) (text string, ok bool) {
	text, err := h.sess.Transcribe(audioPath)
	if !h.record(err) {
		return "", false
	}
	return text, true
}

func (h *host) lastError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *host) close() {
	h.record(h.sess.Close())
}

func (h *host) record(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.lastErr = err.Error()
		return false
	}
	h.lastErr = ""
	return true
}
