//go:build whispercpp

package transcribe

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo CXXFLAGS: -std=c++17 -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/whisper.cpp/build -L${SRCDIR}/../../third_party/whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../third_party/whisper.cpp/build/src -lwhisper -lstdc++ -lm

#include "stdlib.h"
#include "include/whisper.h"
#include "ggml.h"

bool whisperGoAbort(void * user_data);
*/
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// NativeAvailable reports whether the native whisper backend is compiled in.
func NativeAvailable() bool { return true }

// NativeEngine drives whisper.cpp directly and maps every engine parameter
// onto whisper_full_params.
type NativeEngine struct {
	logger *zap.Logger
}

// NewNativeEngine returns the cgo backend.
func NewNativeEngine(logger *zap.Logger) *NativeEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeEngine{logger: logger}
}

// Open initialises a whisper context from the model file at modelPath.
func (e *NativeEngine) Open(modelPath string) (engine.Context, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("transcribe: model path required")
	}
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))

	ctx := C.whisper_init_from_file_with_params(cPath, C.whisper_context_default_params())
	if ctx == nil {
		return nil, fmt.Errorf("transcribe: failed to initialise whisper context for %s", modelPath)
	}
	return &nativeContext{ctx: ctx, logger: e.logger}, nil
}

type nativeContext struct {
	ctx    *C.struct_whisper_context
	logger *zap.Logger
}

func (c *nativeContext) Close() error {
	if c.ctx != nil {
		C.whisper_free(c.ctx)
		c.ctx = nil
	}
	return nil
}

func (c *nativeContext) Full(ctx context.Context, p engine.Params, samples []float32) error {
	if c.ctx == nil {
		return fmt.Errorf("transcribe: context closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	strategy := C.enum_whisper_sampling_strategy(C.WHISPER_SAMPLING_GREEDY)
	if p.Strategy == engine.BeamSearch {
		strategy = C.WHISPER_SAMPLING_BEAM_SEARCH
	}
	params := C.whisper_full_default_params(strategy)

	params.print_realtime = C.bool(p.PrintRealtime)
	params.print_progress = C.bool(p.PrintProgress)
	params.print_timestamps = C.bool(p.PrintTimestamps)
	params.print_special = C.bool(p.PrintSpecial)
	params.translate = C.bool(p.Translate)
	params.detect_language = C.bool(p.DetectLanguage)
	params.n_threads = C.int(p.Threads)
	if p.MaxTextCtx >= 0 {
		params.n_max_text_ctx = C.int(p.MaxTextCtx)
	}
	params.offset_ms = C.int(p.OffsetMs)
	params.duration_ms = C.int(p.DurationMs)

	params.token_timestamps = C.bool(p.TokenTimestamps)
	params.thold_pt = C.float(p.WordThreshold)
	params.max_len = C.int(p.MaxLen)
	params.split_on_word = C.bool(p.SplitOnWord)

	params.greedy.best_of = C.int(p.BestOf)
	params.beam_search.beam_size = C.int(p.BeamSize)

	params.temperature_inc = C.float(p.TemperatureInc)
	params.entropy_thold = C.float(p.EntropyThreshold)
	params.logprob_thold = C.float(p.LogProbThreshold)

	cLang := C.CString(p.Language)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang

	cPrompt := C.CString(p.InitialPrompt)
	defer C.free(unsafe.Pointer(cPrompt))
	params.initial_prompt = cPrompt

	hook := newAbortHook(ctx)
	defer hook.release()
	params.abort_callback = (C.ggml_abort_callback)(C.whisperGoAbort)
	params.abort_callback_user_data = hook.userData()

	if p.SpeedUp {
		c.logger.Debug("speed_up is not supported by this whisper.cpp build, ignoring")
	}

	var cSamples *C.float
	if len(samples) > 0 {
		cSamples = (*C.float)(unsafe.Pointer(&samples[0]))
	}
	nSamples := C.int(len(samples))

	var ret C.int
	if p.Processors > 1 {
		ret = C.whisper_full_parallel(c.ctx, params, cSamples, nSamples, C.int(p.Processors))
	} else {
		ret = C.whisper_full(c.ctx, params, cSamples, nSamples)
	}
	if ret != 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("transcribe: whisper_full failed with code %d", int(ret))
	}
	return nil
}

func (c *nativeContext) NumSegments() int {
	if c.ctx == nil {
		return 0
	}
	return int(C.whisper_full_n_segments(c.ctx))
}

// Segment timestamps are reported by whisper.cpp in centiseconds.
func (c *nativeContext) Segment(i int) engine.Segment {
	return engine.Segment{
		Text:  C.GoString(C.whisper_full_get_segment_text(c.ctx, C.int(i))),
		Start: time.Duration(C.whisper_full_get_segment_t0(c.ctx, C.int(i))) * 10 * time.Millisecond,
		End:   time.Duration(C.whisper_full_get_segment_t1(c.ctx, C.int(i))) * 10 * time.Millisecond,
	}
}

//export whisperGoAbort
func whisperGoAbort(userData unsafe.Pointer) C.bool {
	return C.bool(abortRequested(userData))
}
