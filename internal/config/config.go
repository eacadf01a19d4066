package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend       string              `yaml:"backend" toml:"backend"` // "whisper" or "native"
	Transcription TranscriptionConfig `yaml:"transcription" toml:"transcription"`
	Audio         AudioConfig         `yaml:"audio" toml:"audio"`
	Log           LogConfig           `yaml:"log" toml:"log"`
}

// TranscriptionConfig holds the decoding and output parameters for one
// transcription pass. It is not mutated once a session has been built from it.
type TranscriptionConfig struct {
	Threads    int `yaml:"threads" toml:"threads"`
	Processors int `yaml:"processors" toml:"processors"`
	OffsetMs   int `yaml:"offset_ms" toml:"offset_ms"`
	DurationMs int `yaml:"duration_ms" toml:"duration_ms"`
	MaxContext int `yaml:"max_context" toml:"max_context"` // -1 keeps the engine default
	MaxLen     int `yaml:"max_len" toml:"max_len"`
	BestOf     int `yaml:"best_of" toml:"best_of"`
	BeamSize   int `yaml:"beam_size" toml:"beam_size"`

	WordThreshold    float32 `yaml:"word_threshold" toml:"word_threshold"`
	EntropyThreshold float32 `yaml:"entropy_threshold" toml:"entropy_threshold"`
	LogProbThreshold float32 `yaml:"logprob_threshold" toml:"logprob_threshold"`

	SpeedUp        bool `yaml:"speed_up" toml:"speed_up"`
	Translate      bool `yaml:"translate" toml:"translate"`
	DetectLanguage bool `yaml:"detect_language" toml:"detect_language"`
	Diarize        bool `yaml:"diarize" toml:"diarize"`
	SplitOnWord    bool `yaml:"split_on_word" toml:"split_on_word"`
	NoFallback     bool `yaml:"no_fallback" toml:"no_fallback"`
	OutputTxt      bool `yaml:"output_txt" toml:"output_txt"`
	OutputVtt      bool `yaml:"output_vtt" toml:"output_vtt"`
	OutputSrt      bool `yaml:"output_srt" toml:"output_srt"`
	OutputWts      bool `yaml:"output_wts" toml:"output_wts"`
	OutputCsv      bool `yaml:"output_csv" toml:"output_csv"`
	OutputJSON     bool `yaml:"output_json" toml:"output_json"`
	OutputLrc      bool `yaml:"output_lrc" toml:"output_lrc"`
	PrintSpecial   bool `yaml:"print_special" toml:"print_special"`
	PrintColors    bool `yaml:"print_colors" toml:"print_colors"`
	PrintProgress  bool `yaml:"print_progress" toml:"print_progress"`
	NoTimestamps   bool `yaml:"no_timestamps" toml:"no_timestamps"`

	Language  string `yaml:"language" toml:"language"`
	Prompt    string `yaml:"prompt" toml:"prompt"`
	ModelPath string `yaml:"model_path" toml:"model_path"`

	InputPaths  []string `yaml:"input_paths" toml:"input_paths"`
	OutputPaths []string `yaml:"output_paths" toml:"output_paths"`
}

// AudioConfig holds microphone capture settings used by the record command.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate" toml:"sample_rate"`
	Channels   uint32 `yaml:"channels" toml:"channels"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gostt-bridge")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultTranscription returns the transcription parameters the binding has
// always used.
func DefaultTranscription() TranscriptionConfig {
	return TranscriptionConfig{
		Threads:          4,
		Processors:       1,
		MaxContext:       -1,
		BestOf:           2,
		BeamSize:         -1,
		WordThreshold:    0.01,
		EntropyThreshold: 2.40,
		LogProbThreshold: -1.00,
		Language:         "en",
		ModelPath:        filepath.Join("models", "ggml-base.en.bin"),
	}
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend:       "whisper",
		Transcription: DefaultTranscription(),
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses a YAML or TOML config file, chosen by extension.
// Missing fields are filled with defaults. Tilde (~) in paths is expanded to
// the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Transcription.ModelPath = expandTilde(cfg.Transcription.ModelPath)
	for i, p := range cfg.Transcription.InputPaths {
		cfg.Transcription.InputPaths[i] = expandTilde(p)
	}
	for i, p := range cfg.Transcription.OutputPaths {
		cfg.Transcription.OutputPaths[i] = expandTilde(p)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case "whisper", "native":
	default:
		return fmt.Errorf("backend must be \"whisper\" or \"native\", got %q", c.Backend)
	}

	if err := c.Transcription.Validate(); err != nil {
		return err
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	return nil
}

// Validate checks the transcription parameters for values the engine cannot use.
func (t TranscriptionConfig) Validate() error {
	if t.ModelPath == "" {
		return fmt.Errorf("transcription.model_path must not be empty")
	}
	if t.Threads <= 0 {
		return fmt.Errorf("transcription.threads must be > 0")
	}
	if t.Processors <= 0 {
		return fmt.Errorf("transcription.processors must be > 0")
	}
	if t.OffsetMs < 0 || t.DurationMs < 0 {
		return fmt.Errorf("transcription.offset_ms and duration_ms must be >= 0")
	}
	if t.MaxLen < 0 {
		return fmt.Errorf("transcription.max_len must be >= 0")
	}
	if t.Language == "" {
		return fmt.Errorf("transcription.language must not be empty")
	}
	if len(t.OutputPaths) > 0 && len(t.OutputPaths) != len(t.InputPaths) {
		return fmt.Errorf("transcription.output_paths has %d entries, want %d (one per input)",
			len(t.OutputPaths), len(t.InputPaths))
	}
	return nil
}

// WantsOutputFiles reports whether any output file format is enabled.
func (t TranscriptionConfig) WantsOutputFiles() bool {
	return t.OutputTxt || t.OutputVtt || t.OutputSrt || t.OutputCsv || t.OutputJSON || t.OutputLrc
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

const defaultHeader = "# gostt-bridge configuration\n# Transcription fields mirror the whisper.cpp command line options.\n\n"

// WriteDefault writes the default config to DefaultConfigPath. It returns the
// written path, or "" when a config file already exists there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
