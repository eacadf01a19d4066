// Package models fetches whisper.cpp ggml model files.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	// DefaultModel is the model the binding loads when none is configured.
	DefaultModel = "base.en"

	defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
)

var modelNamePattern = regexp.MustCompile(`^(tiny|base|small|medium|large(-v[1-3])?(-turbo)?)(\.en)?(-q[458]_[01k])?$`)

// Options configures a model download.
type Options struct {
	// Name is the whisper.cpp model name, e.g. "base.en" or "small".
	Name string
	// Dir is where the model file is written.
	Dir string
	// BaseURL overrides the download location, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
	NoProgress bool
	Logger     *zap.Logger
}

// FileName returns the ggml file name for a model name.
func FileName(name string) string {
	return "ggml-" + name + ".bin"
}

// NameFromFile returns the model name encoded in a ggml file name such as
// models/ggml-base.en.bin, or false when the file does not follow that form.
func NameFromFile(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "ggml-") || !strings.HasSuffix(base, ".bin") {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(base, "ggml-"), ".bin")
	return name, ValidName(name)
}

// ValidName reports whether name is a known whisper.cpp model name.
func ValidName(name string) bool {
	return modelNamePattern.MatchString(name)
}

// Download fetches the model into opts.Dir and returns its path. An existing
// non-empty file is reused.
func Download(ctx context.Context, opts Options) (string, error) {
	if !ValidName(opts.Name) {
		return "", fmt.Errorf("models: unknown model %q", opts.Name)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	destPath := filepath.Join(opts.Dir, FileName(opts.Name))
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		opts.Logger.Info("model already present", zap.String("path", destPath), zap.Int64("bytes", info.Size()))
		return destPath, nil
	}

	url := opts.BaseURL + "/" + FileName(opts.Name)
	opts.Logger.Info("downloading model", zap.String("url", url), zap.String("destination", destPath))

	if err := fetch(ctx, opts, url, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// fetch writes url to a temp file first, then renames it into place.
func fetch(ctx context.Context, opts Options, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var w io.Writer = f
	var bar *progressbar.ProgressBar
	if shouldRenderProgress(opts.NoProgress, resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(FileName(opts.Name)),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		w = io.MultiWriter(f, bar)
	}

	written, err := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	opts.Logger.Info("model downloaded", zap.String("path", destPath), zap.Int64("bytes", written))
	return nil
}

func shouldRenderProgress(noProgress bool, contentLength int64) bool {
	if noProgress || contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
