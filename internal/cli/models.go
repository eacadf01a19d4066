package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/models"
)

func newDownloadModelCmd(app *appState) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download-model [name]",
		Short: "Download a whisper.cpp ggml model",
		Long: "Download a whisper.cpp ggml model, e.g. tiny.en, base.en, small or large-v3-turbo.\n" +
			"By default the model named by transcription.model_path is fetched into its directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := app.config().Transcription.ModelPath
			name, ok := models.NameFromFile(modelPath)
			if !ok {
				name = models.DefaultModel
			}
			if len(args) == 1 {
				name = args[0]
			}
			if dir == "" {
				dir = filepath.Dir(modelPath)
			}

			path, err := app.downloadFn(cmd.Context(), models.Options{
				Name:       name,
				Dir:        dir,
				NoProgress: app.noProgress,
				Logger:     app.log(),
			})
			if err != nil {
				return fmt.Errorf("download model %q: %w", name, err)
			}

			if filepath.Clean(path) != filepath.Clean(modelPath) {
				app.log().Warn("downloaded model is not the configured model; pass --model or set transcription.model_path",
					zap.String("downloaded", path),
					zap.String("model_path", modelPath),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to store the model (default: the directory of transcription.model_path)")
	return cmd
}

func newInitConfigCmd(_ *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s\n", config.DefaultConfigPath())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
