//go:build cgo

package transcribe

import (
	"context"
	"runtime/cgo"
	"unsafe"
)

// abortHook hands a context to whisper.cpp's abort callback. whisper.cpp only
// holds a pointer to the handle, so the hook must outlive the decode call.
type abortHook struct {
	handle cgo.Handle
}

func newAbortHook(ctx context.Context) *abortHook {
	return &abortHook{handle: cgo.NewHandle(ctx)}
}

func (h *abortHook) userData() unsafe.Pointer {
	return unsafe.Pointer(&h.handle)
}

func (h *abortHook) release() {
	if h.handle != 0 {
		h.handle.Delete()
		h.handle = 0
	}
}

// abortRequested reports whether the context behind userData is done. A nil
// pointer, a released hook or a handle holding something other than a
// context never aborts the decode.
func abortRequested(userData unsafe.Pointer) bool {
	ctx := hookContext(userData)
	return ctx != nil && ctx.Err() != nil
}

func hookContext(userData unsafe.Pointer) (ctx context.Context) {
	if userData == nil {
		return nil
	}
	h := *(*cgo.Handle)(userData)
	if h == 0 {
		return nil
	}
	// Value panics on a handle deleted behind our back.
	defer func() {
		if recover() != nil {
			ctx = nil
		}
	}()
	ctx, _ = h.Value().(context.Context)
	return ctx
}
