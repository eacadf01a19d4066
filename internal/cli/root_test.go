package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	for _, name := range []string{"transcribe", "record", "download-model", "init-config"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, found.Name())
	}
}

func TestRootMissingExplicitConfig(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "transcribe", "a.wav"})
	require.ErrorContains(t, err, "reading config file")
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	_, err := runCommand(t, []string{"--config", path, "--log-level", "loud", "transcribe", "a.wav"})
	require.ErrorContains(t, err, "initialize logger")
}

func TestSetupAppliesLoggingOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = \"native\"\n[log]\nlevel = \"warn\"\n"), 0644))

	app := &appState{configPath: path, verbose: true, jsonLogs: true}
	require.NoError(t, app.setup())
	require.Equal(t, "native", app.cfg.Backend)
	require.Equal(t, "debug", app.cfg.Log.Level)
	require.True(t, app.cfg.Log.JSON)
	require.NotNil(t, app.logger)
}

func TestSetupWithoutConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app := &appState{}
	require.NoError(t, app.setup())
	require.Equal(t, "whisper", app.cfg.Backend)
	require.Equal(t, "info", app.cfg.Log.Level)
}

func TestInitConfigCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := runCommand(t, []string{"init-config"})
	require.NoError(t, err)
	want := filepath.Join(home, ".config", "gostt-bridge", "config.yaml")
	require.Equal(t, "wrote "+want+"\n", out)
	require.FileExists(t, want)

	out, err = runCommand(t, []string{"init-config"})
	require.NoError(t, err)
	require.Contains(t, out, "config already exists")
}
