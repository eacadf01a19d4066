// Package engine describes the inference engine a transcription session drives
// and the parameters it is invoked with.
//
// Backends live in package transcribe. Nothing here links against whisper.cpp,
// so sessions can be exercised with a fake engine.
package engine

import (
	"context"
	"errors"
	"time"
)

// SampleRate is the only sample rate the engine accepts.
const SampleRate = 16000

// ErrUnavailable is returned by backends that were not compiled in.
var ErrUnavailable = errors.New("engine: backend unavailable")

// Engine opens inference contexts from model weight files.
type Engine interface {
	// Open loads the model at modelPath. The returned Context is owned by the
	// caller and must be closed exactly once.
	Open(modelPath string) (Context, error)
}

// Context is a loaded model ready to run inference.
type Context interface {
	// Full runs a complete transcription pass over mono 16kHz samples. It blocks
	// until the engine returns. Backends stop early when ctx is cancelled.
	Full(ctx context.Context, p Params, samples []float32) error
	// NumSegments reports the number of segments produced by the last Full call.
	NumSegments() int
	// Segment returns segment i of the last Full call, 0 <= i < NumSegments().
	Segment(i int) Segment
	// Close releases the engine resources.
	Close() error
}

// Segment is one contiguous span of transcript text.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
	// Speaker is set only when diarization is enabled: "0", "1" or "?".
	Speaker string
}
