package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/audio"
)

func newRecordCmd(app *appState) *cobra.Command {
	var (
		duration time.Duration
		outPath  string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone and transcribe the recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.config().Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			if duration <= 0 {
				return fmt.Errorf("--duration must be > 0")
			}

			keep := outPath != ""
			if !keep {
				dir, err := os.MkdirTemp("", "gostt-bridge-*")
				if err != nil {
					return fmt.Errorf("create temp dir: %w", err)
				}
				defer os.RemoveAll(dir)
				outPath = filepath.Join(dir, "recording.wav")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			app.log().Info("recording... press Ctrl+C to stop early", zap.Duration("duration", duration))
			err := app.recordFn(ctx, duration, outPath)
			stop()
			if err != nil {
				return err
			}
			if keep {
				app.log().Info("recording saved", zap.String("path", outPath))
			}

			return app.runTranscription(cmd.Context(), cmd.OutOrStdout(), []string{outPath}, []string{outPath}, runOptions{timeout: timeout})
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "Recording length, e.g. 10s")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Keep the recording at this WAV path")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the transcription after this long; 0 disables")
	return cmd
}

// recordAudio captures d of microphone audio into a WAV file at path.
func (a *appState) recordAudio(ctx context.Context, d time.Duration, path string) error {
	ac := a.config().Audio
	if ac.SampleRate != audio.WhisperSampleRate {
		return fmt.Errorf("audio.sample_rate must be %d for transcription, got %d", audio.WhisperSampleRate, ac.SampleRate)
	}

	rec, err := audio.NewRecorder(ac.SampleRate, ac.Channels)
	if err != nil {
		return fmt.Errorf("%w\n\nEnsure microphone access is granted to this terminal.", err)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			a.log().Warn("failed to close recorder", zap.Error(err))
		}
	}()

	samples, err := rec.Record(ctx, d)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no audio captured")
	}
	return audio.WriteWAV(path, samples, int(rec.SampleRate()), int(rec.Channels()))
}
