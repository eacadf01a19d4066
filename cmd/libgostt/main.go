// Command libgostt builds the transcription session as a C shared library:
//
//	go build -buildmode=c-shared -o libgostt.so ./cmd/libgostt
//
// Every handle returned by gostt_new must be released with gostt_free, and
// every string returned by the library with gostt_string_free.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

func main() {}

// lookup resolves h, returning nil for 0 or a handle already freed.
func lookup(h C.uintptr_t) (v *host) {
	if h == 0 {
		return nil
	}
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	v, ok := cgo.Handle(h).Value().(*host)
	if !ok {
		return nil
	}
	return v
}

// gostt_new creates a session. configPath may be NULL for the defaults.
// It returns 0 on failure; gostt_last_error(0) then says why.
//
//export gostt_new
func gostt_new(configPath *C.char) C.uintptr_t {
	var path string
	if configPath != nil {
		path = C.GoString(configPath)
	}
	h, err := defaultHost(path)
	if err != nil {
		return 0 // reason kept for gostt_last_error(0)
	}
	return C.uintptr_t(cgo.NewHandle(h))
}

//export gostt_init
func gostt_init(h C.uintptr_t, modelPath *C.char) C.bool {
	s := lookup(h)
	if s == nil || modelPath == nil {
		return C.bool(false)
	}
	return C.bool(s.initialize(C.GoString(modelPath)))
}

// gostt_transcribe returns the transcript, or NULL on failure.
//
//export gostt_transcribe
func gostt_transcribe(h C.uintptr_t, audioPath *C.char) *C.char {
	s := lookup(h)
	if s == nil || audioPath == nil {
		return nil
	}
	text, ok := s.transcribe(C.GoString(audioPath))
	if !ok {
		return nil
	}
	return C.CString(text)
}

// gostt_last_error returns the message of the last failed call on h, or an
// empty string. With h == 0 it reports the last gostt_new failure.
//
//export gostt_last_error
func gostt_last_error(h C.uintptr_t) *C.char {
	if h == 0 {
		return C.CString(lastCreateError())
	}
	s := lookup(h)
	if s == nil {
		return C.CString("invalid handle")
	}
	return C.CString(s.lastError())
}

//export gostt_free
func gostt_free(h C.uintptr_t) {
	s := lookup(h)
	if s == nil {
		return
	}
	s.close()
	cgo.Handle(h).Delete()
}

//export gostt_string_free
func gostt_string_free(s *C.char) {
	C.free(unsafe.Pointer(s))
}
