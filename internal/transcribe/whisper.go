package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// WhisperEngine loads models through the low-level whisper.cpp Go bindings,
// which let each pass pick its sampling strategy.
type WhisperEngine struct {
	logger *zap.Logger
}

// NewWhisperEngine returns the Go bindings backend.
func NewWhisperEngine(logger *zap.Logger) *WhisperEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperEngine{logger: logger}
}

// Open loads a whisper model from the given path.
// The caller must call Close() on the returned context when done.
func (e *WhisperEngine) Open(modelPath string) (engine.Context, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model: %w", err)
	}
	wctx := whisper.Whisper_init(modelPath)
	if wctx == nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: whisper_init failed", modelPath)
	}
	return &whisperContext{
		ctx:          wctx,
		logger:       e.logger,
		multilingual: wctx.Whisper_is_multilingual() != 0,
	}, nil
}

type whisperContext struct {
	ctx          *whisper.Context
	logger       *zap.Logger
	multilingual bool
	segments     []engine.Segment
}

// Close releases the whisper model resources.
func (c *whisperContext) Close() error {
	if c.ctx != nil {
		c.ctx.Whisper_free()
		c.ctx = nil
	}
	return nil
}

// Full transcribes mono 16kHz float32 audio samples.
func (c *whisperContext) Full(ctx context.Context, p engine.Params, samples []float32) error {
	c.segments = nil
	if c.ctx == nil {
		return errors.New("transcribe: model closed")
	}
	if len(samples) == 0 {
		return errors.New("transcribe: no audio samples")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wp := c.ctx.Whisper_full_default_params(samplingStrategy(p.Strategy))
	applyParams(&wp, p)

	lang, set, err := languageID(p, c.multilingual, c.ctx.Whisper_lang_id)
	if err != nil {
		return err
	}
	if set {
		if err := wp.SetLanguage(lang); err != nil {
			return fmt.Errorf("transcribe: set language %q: %w", p.Language, err)
		}
	}
	c.logger.Debug("whisper params",
		zap.Stringer("params", &wp),
		zap.Any("decoder", readDecoderFields(&wp)),
		zap.Int("processors", p.Processors),
		zap.Bool("multilingual", c.multilingual),
	)

	// Returning false from the encoder-begin callback aborts the pass.
	keepGoing := func() bool { return ctx.Err() == nil }

	if p.Processors > 1 {
		err = c.ctx.Whisper_full_parallel(wp, samples, p.Processors, keepGoing, nil)
	} else {
		err = c.ctx.Whisper_full(wp, samples, keepGoing, nil, nil)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("transcribe: whisper_full: %w", err)
	}

	n := c.ctx.Whisper_full_n_segments()
	segments := make([]engine.Segment, 0, n)
	for i := 0; i < n; i++ {
		segments = append(segments, engine.Segment{
			Text:  c.ctx.Whisper_full_get_segment_text(i),
			Start: centiseconds(c.ctx.Whisper_full_get_segment_t0(i)),
			End:   centiseconds(c.ctx.Whisper_full_get_segment_t1(i)),
		})
	}
	c.segments = segments
	return nil
}

func (c *whisperContext) NumSegments() int { return len(c.segments) }

func (c *whisperContext) Segment(i int) engine.Segment { return c.segments[i] }

func samplingStrategy(s engine.Strategy) whisper.SamplingStrategy {
	if s == engine.BeamSearch {
		return whisper.SAMPLING_BEAM_SEARCH
	}
	return whisper.SAMPLING_GREEDY
}

// applyParams copies p onto wp. The language is set separately by Full since
// it depends on the loaded model.
func applyParams(wp *whisper.Params, p engine.Params) {
	wp.SetPrintRealtime(p.PrintRealtime)
	wp.SetPrintProgress(p.PrintProgress)
	wp.SetPrintTimestamps(p.PrintTimestamps)
	wp.SetPrintSpecial(p.PrintSpecial)
	wp.SetTranslate(p.Translate)
	wp.SetThreads(p.Threads)
	if p.MaxTextCtx >= 0 {
		wp.SetMaxContext(p.MaxTextCtx)
	}
	wp.SetOffset(p.OffsetMs)
	wp.SetDuration(p.DurationMs)
	wp.SetTokenTimestamps(p.TokenTimestamps)
	wp.SetTokenThreshold(p.WordThreshold)
	wp.SetMaxSegmentLength(p.MaxLen)
	wp.SetSplitOnWord(p.SplitOnWord)
	wp.SetBeamSize(p.BeamSize)
	wp.SetTemperatureFallback(p.TemperatureInc)
	wp.SetEntropyThold(p.EntropyThreshold)
	if p.InitialPrompt != "" {
		wp.SetInitialPrompt(p.InitialPrompt)
	}
	setDecoderFields(wp, p)
}

// languageID resolves the language id for p. English-only models keep the
// engine default and report set == false; -1 selects auto-detection.
func languageID(p engine.Params, multilingual bool, lookup func(string) int) (id int, set bool, err error) {
	if !multilingual {
		return 0, false, nil
	}
	if p.DetectLanguage || p.Language == "" || p.Language == "auto" {
		return -1, true, nil
	}
	id = lookup(p.Language)
	if id < 0 {
		return 0, false, fmt.Errorf("transcribe: unknown language %q", p.Language)
	}
	return id, true, nil
}

func centiseconds(t int64) time.Duration {
	return time.Duration(t) * 10 * time.Millisecond
}
