package engine

import "github.com/chaz8081/gostt-bridge/internal/config"

// Strategy selects how the decoder turns model output into tokens.
type Strategy int

const (
	Greedy Strategy = iota
	BeamSearch
)

func (s Strategy) String() string {
	switch s {
	case BeamSearch:
		return "beam_search"
	default:
		return "greedy"
	}
}

const (
	// DefaultTemperatureInc matches whisper_full_default_params.
	DefaultTemperatureInc float32 = 0.2
	// wordTimestampMaxLen caps segment length when word timestamps are
	// requested without an explicit cap.
	wordTimestampMaxLen = 60
)

// Params are the effective engine invocation parameters. Build them with
// NewParams so the interdependent values are derived in one place.
type Params struct {
	Strategy   Strategy
	Threads    int
	Processors int
	OffsetMs   int
	DurationMs int
	// MaxTextCtx < 0 leaves the engine default in place.
	MaxTextCtx int
	MaxLen     int

	TokenTimestamps bool
	WordThreshold   float32
	SplitOnWord     bool
	SpeedUp         bool

	Translate      bool
	Language       string
	DetectLanguage bool
	InitialPrompt  string

	BestOf           int
	BeamSize         int
	TemperatureInc   float32
	EntropyThreshold float32
	LogProbThreshold float32

	PrintRealtime   bool
	PrintProgress   bool
	PrintTimestamps bool
	PrintSpecial    bool
}

// NewParams derives engine parameters from a transcription config.
func NewParams(cfg config.TranscriptionConfig) Params {
	p := Params{
		Strategy:         Greedy,
		Threads:          cfg.Threads,
		Processors:       cfg.Processors,
		OffsetMs:         cfg.OffsetMs,
		DurationMs:       cfg.DurationMs,
		MaxTextCtx:       -1,
		MaxLen:           cfg.MaxLen,
		TokenTimestamps:  cfg.OutputWts || cfg.MaxLen > 0,
		WordThreshold:    cfg.WordThreshold,
		SplitOnWord:      cfg.SplitOnWord,
		SpeedUp:          cfg.SpeedUp,
		Translate:        cfg.Translate,
		Language:         cfg.Language,
		DetectLanguage:   cfg.DetectLanguage,
		InitialPrompt:    cfg.Prompt,
		BestOf:           cfg.BestOf,
		BeamSize:         cfg.BeamSize,
		TemperatureInc:   DefaultTemperatureInc,
		EntropyThreshold: cfg.EntropyThreshold,
		LogProbThreshold: cfg.LogProbThreshold,
		PrintProgress:    cfg.PrintProgress,
		PrintTimestamps:  !cfg.NoTimestamps,
		PrintSpecial:     cfg.PrintSpecial,
	}

	if cfg.BeamSize > 1 {
		p.Strategy = BeamSearch
	}
	if cfg.MaxContext >= 0 {
		p.MaxTextCtx = cfg.MaxContext
	}
	if cfg.OutputWts && cfg.MaxLen == 0 {
		p.MaxLen = wordTimestampMaxLen
	}
	if cfg.NoFallback {
		p.TemperatureInc = 0
	}

	return p
}
