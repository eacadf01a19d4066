package transcribe

/*
#include <whisper.h>
*/
import "C"

import (
	"unsafe"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// The bindings have no setters for these whisper_full_params fields, so they
// are written through the struct declared in whisper.h.

func rawParams(wp *whisper.Params) *C.struct_whisper_full_params {
	return (*C.struct_whisper_full_params)(unsafe.Pointer(wp))
}

func setDecoderFields(wp *whisper.Params, p engine.Params) {
	raw := rawParams(wp)
	raw.strategy = C.enum_whisper_sampling_strategy(samplingStrategy(p.Strategy))
	raw.greedy.best_of = C.int(p.BestOf)
	raw.logprob_thold = C.float(p.LogProbThreshold)
	raw.detect_language = C.bool(p.DetectLanguage)
}

// decoderFields is the decoding setup a whisper.Params will run with.
type decoderFields struct {
	Strategy         whisper.SamplingStrategy
	BestOf           int
	BeamSize         int
	LogProbThreshold float32
	TemperatureInc   float32
	DetectLanguage   bool
}

func readDecoderFields(wp *whisper.Params) decoderFields {
	raw := rawParams(wp)
	return decoderFields{
		Strategy:         whisper.SamplingStrategy(raw.strategy),
		BestOf:           int(raw.greedy.best_of),
		BeamSize:         int(raw.beam_search.beam_size),
		LogProbThreshold: float32(raw.logprob_thold),
		TemperatureInc:   float32(raw.temperature_inc),
		DetectLanguage:   bool(raw.detect_language),
	}
}
