package transcribe

import (
	"errors"
	"testing"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

func TestNewWhisperBackend(t *testing.T) {
	for _, name := range []string{"whisper", ""} {
		eng, err := New(name, nil)
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		if _, ok := eng.(*WhisperEngine); !ok {
			t.Errorf("New(%q) = %T, want *WhisperEngine", name, eng)
		}
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("parakeet", nil); err == nil {
		t.Fatal("New with unknown backend should return error")
	}
}

func TestNewNativeBackend(t *testing.T) {
	eng, err := New("native", nil)
	if !NativeAvailable() {
		if !errors.Is(err, engine.ErrUnavailable) {
			t.Fatalf("New(native) error = %v, want ErrUnavailable", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("New(native) error = %v", err)
	}
	if _, ok := eng.(*NativeEngine); !ok {
		t.Errorf("New(native) = %T, want *NativeEngine", eng)
	}
}
