// Package transcribe provides the speech-to-text engines a session can drive.
//
// Supported backends:
//   - whisper: whisper.cpp via its Go bindings (default)
//   - native: whisper.cpp through cgo with the full decoding parameter set,
//     compiled in with the whispercpp build tag
package transcribe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// New creates the engine for the named backend.
func New(backend string, logger *zap.Logger) (engine.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case "native":
		if !NativeAvailable() {
			return nil, fmt.Errorf("transcribe: native backend: %w (rebuild with -tags whispercpp)", engine.ErrUnavailable)
		}
		return NewNativeEngine(logger), nil
	case "whisper", "":
		return NewWhisperEngine(logger), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, native)", backend)
	}
}
