package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
	"github.com/chaz8081/gostt-bridge/internal/models"
	"github.com/chaz8081/gostt-bridge/internal/output"
	"github.com/chaz8081/gostt-bridge/internal/session"
	"github.com/chaz8081/gostt-bridge/internal/wer"
)

type transcribeFlags struct {
	model       string
	backend     string
	language    string
	prompt      string
	threads     int
	processors  int
	offsetMs    int
	durationMs  int
	maxContext  int
	maxLen      int
	bestOf      int
	beamSize    int
	translate   bool
	detect      bool
	diarize     bool
	splitOnWord bool
	noFallback  bool
	noTimestamp bool
	outputTxt   bool
	outputVtt   bool
	outputSrt   bool
	outputCsv   bool
	outputJSON  bool
	outputLrc   bool
	timeout     time.Duration
	reference   string
}

// runOptions controls a batch of transcription passes.
type runOptions struct {
	timeout time.Duration
	// reference, when set, is the expected transcript each result is scored
	// against.
	reference string
}

func newTranscribeCmd(app *appState) *cobra.Command {
	f := &transcribeFlags{}

	cmd := &cobra.Command{
		Use:   "transcribe [wav-file...]",
		Short: "Transcribe 16 kHz WAV files",
		Long:  "Transcribe 16 kHz WAV files. Without arguments the config's input_paths are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.config()
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			inputs, outputs := args, args
			if len(inputs) == 0 {
				inputs = cfg.Transcription.InputPaths
				outputs = cfg.Transcription.OutputPaths
				if len(outputs) == 0 {
					outputs = inputs
				}
			}
			if len(inputs) == 0 {
				return errors.New("no input files: pass WAV paths or set transcription.input_paths")
			}

			opts := runOptions{timeout: f.timeout}
			if f.reference != "" {
				ref, err := os.ReadFile(f.reference)
				if err != nil {
					return fmt.Errorf("reading reference transcript: %w", err)
				}
				opts.reference = string(ref)
			}

			return app.runTranscription(cmd.Context(), cmd.OutOrStdout(), inputs, outputs, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.model, "model", "m", "", "Model file path")
	fs.StringVar(&f.backend, "backend", "", "Inference backend: whisper|native")
	fs.StringVarP(&f.language, "language", "l", "", "Spoken language code, or auto")
	fs.StringVar(&f.prompt, "prompt", "", "Initial prompt")
	fs.IntVarP(&f.threads, "threads", "t", 0, "Number of threads")
	fs.IntVarP(&f.processors, "processors", "p", 0, "Number of processors")
	fs.IntVar(&f.offsetMs, "offset-t", 0, "Time offset in milliseconds")
	fs.IntVarP(&f.durationMs, "duration", "d", 0, "Duration of audio to process in milliseconds")
	fs.IntVar(&f.maxContext, "max-context", 0, "Maximum number of text context tokens")
	fs.IntVar(&f.maxLen, "max-len", 0, "Maximum segment length in characters")
	fs.IntVar(&f.bestOf, "best-of", 0, "Number of best candidates to keep")
	fs.IntVar(&f.beamSize, "beam-size", 0, "Beam size for beam search")
	fs.BoolVar(&f.translate, "translate", false, "Translate from source language to English")
	fs.BoolVar(&f.detect, "detect-language", false, "Detect the spoken language")
	fs.BoolVar(&f.diarize, "diarize", false, "Label speakers of stereo input")
	fs.BoolVar(&f.splitOnWord, "split-on-word", false, "Split segments on words rather than tokens")
	fs.BoolVar(&f.noFallback, "no-fallback", false, "Do not use temperature fallback while decoding")
	fs.BoolVar(&f.noTimestamp, "no-timestamps", false, "Do not print timestamps")
	fs.BoolVar(&f.outputTxt, "output-txt", false, "Write a .txt file")
	fs.BoolVar(&f.outputVtt, "output-vtt", false, "Write a .vtt file")
	fs.BoolVar(&f.outputSrt, "output-srt", false, "Write a .srt file")
	fs.BoolVar(&f.outputCsv, "output-csv", false, "Write a .csv file")
	fs.BoolVar(&f.outputJSON, "output-json", false, "Write a .json file")
	fs.BoolVar(&f.outputLrc, "output-lrc", false, "Write a .lrc file")
	fs.DurationVar(&f.timeout, "timeout", 0, "Abort a transcription after this long, e.g. 2m; 0 disables")
	fs.StringVar(&f.reference, "reference", "", "Text file with the expected transcript; logs the word error rate")

	return cmd
}

// apply overrides cfg with the flags that were set on the command line.
func (f *transcribeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	t := &cfg.Transcription

	if fs.Changed("model") {
		t.ModelPath = f.model
	}
	if fs.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fs.Changed("language") {
		t.Language = f.language
	}
	if fs.Changed("prompt") {
		t.Prompt = f.prompt
	}

	ints := map[string]struct {
		src int
		dst *int
	}{
		"threads":     {f.threads, &t.Threads},
		"processors":  {f.processors, &t.Processors},
		"offset-t":    {f.offsetMs, &t.OffsetMs},
		"duration":    {f.durationMs, &t.DurationMs},
		"max-context": {f.maxContext, &t.MaxContext},
		"max-len":     {f.maxLen, &t.MaxLen},
		"best-of":     {f.bestOf, &t.BestOf},
		"beam-size":   {f.beamSize, &t.BeamSize},
	}
	for name, v := range ints {
		if fs.Changed(name) {
			*v.dst = v.src
		}
	}

	bools := map[string]struct {
		src bool
		dst *bool
	}{
		"translate":       {f.translate, &t.Translate},
		"detect-language": {f.detect, &t.DetectLanguage},
		"diarize":         {f.diarize, &t.Diarize},
		"split-on-word":   {f.splitOnWord, &t.SplitOnWord},
		"no-fallback":     {f.noFallback, &t.NoFallback},
		"no-timestamps":   {f.noTimestamp, &t.NoTimestamps},
		"output-txt":      {f.outputTxt, &t.OutputTxt},
		"output-vtt":      {f.outputVtt, &t.OutputVtt},
		"output-srt":      {f.outputSrt, &t.OutputSrt},
		"output-csv":      {f.outputCsv, &t.OutputCsv},
		"output-json":     {f.outputJSON, &t.OutputJSON},
		"output-lrc":      {f.outputLrc, &t.OutputLrc},
	}
	for name, v := range bools {
		if fs.Changed(name) {
			*v.dst = v.src
		}
	}
}

// runTranscription loads the model once and transcribes every input in order.
// outputs[i] is the base name for the files written for inputs[i].
func (a *appState) runTranscription(ctx context.Context, w io.Writer, inputs, outputs []string, opts runOptions) error {
	cfg := a.config()
	tc := cfg.Transcription

	eng, err := a.engineFn(cfg.Backend, a.log())
	if err != nil {
		return err
	}

	sess := session.New(eng, session.WithConfig(tc), session.WithLogger(a.log()))
	defer func() {
		if err := sess.Close(); err != nil {
			a.log().Warn("failed to release model", zap.Error(err))
		}
	}()

	started := time.Now()
	if err := sess.Initialize(tc.ModelPath); err != nil {
		return fmt.Errorf("%w\n\nCheck that the model file exists at: %s\n%s", err, tc.ModelPath, downloadHint(tc.ModelPath))
	}
	a.log().Info("model loaded",
		zap.String("model", tc.ModelPath),
		zap.String("backend", cfg.Backend),
		zap.Duration("elapsed", time.Since(started)),
	)

	formats := output.Formats(tc)
	for i, in := range inputs {
		if err := a.transcribeOne(ctx, sess, w, in, outputs[i], formats, opts); err != nil {
			return err
		}
	}
	return nil
}

func (a *appState) transcribeOne(ctx context.Context, sess *session.Session, w io.Writer, in, base string, formats []output.Format, opts runOptions) error {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	a.log().Info("transcribing...", zap.String("audio", in))
	started := time.Now()

	segs, err := sess.TranscribeSegments(ctx, in)
	if err != nil {
		a.log().Warn("transcription failed", zap.String("audio", in), zap.Error(err))
		return err
	}
	a.log().Info("transcription finished",
		zap.String("audio", in),
		zap.Int("segments", len(segs)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if err := output.WriteConsole(w, segs, !sess.Config().NoTimestamps); err != nil {
		return err
	}
	if opts.reference != "" {
		a.logScore(in, opts.reference, segs)
	}

	if len(formats) == 0 {
		return nil
	}
	paths, err := output.WriteFiles(base, formats, segs)
	for _, p := range paths {
		a.log().Info("output written", zap.String("path", p))
	}
	return err
}

func (a *appState) logScore(in, reference string, segs []engine.Segment) {
	var hyp strings.Builder
	for _, s := range segs {
		hyp.WriteString(s.Text)
	}
	r := wer.Compute(reference, hyp.String())
	a.log().Info("word error rate",
		zap.String("audio", in),
		zap.String("wer", fmt.Sprintf("%.1f%%", r.Rate*100)),
		zap.Int("substitutions", r.Substitutions),
		zap.Int("insertions", r.Insertions),
		zap.Int("deletions", r.Deletions),
		zap.Int("reference_words", r.Words),
	)
}

// downloadHint names the download-model invocation that produces modelPath.
func downloadHint(modelPath string) string {
	dir := filepath.Dir(modelPath)
	if name, ok := models.NameFromFile(modelPath); ok {
		return fmt.Sprintf("Run 'gostt-bridge download-model --dir %s %s' to fetch it.", dir, name)
	}
	return fmt.Sprintf("Run 'gostt-bridge download-model --dir %s <name>' and set transcription.model_path to the printed path.", dir)
}
