//go:build !whispercpp

package transcribe

import (
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// NativeAvailable reports whether the native whisper backend is compiled in.
func NativeAvailable() bool { return false }

// NativeEngine is a stub used when the native backend is not built.
type NativeEngine struct{}

// NewNativeEngine returns a stub whose Open always fails.
func NewNativeEngine(*zap.Logger) *NativeEngine { return &NativeEngine{} }

func (e *NativeEngine) Open(string) (engine.Context, error) {
	return nil, engine.ErrUnavailable
}
