package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gradescan/internal/config"
)

// resetFlags restores every flag so tests do not leak values through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		// Set("[]") would append a literal "[]" to slice flags
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommandAndCaptureOutput runs the root command with args and returns stdout and stderr.
func executeCommandAndCaptureOutput(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	resetFlags(rootCmd)
	globalConfig = nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return strings.TrimSpace(stdout.String()), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "gradescan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := executeCommandAndCaptureOutput(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "report cards")
	assert.Contains(t, out, "Available Commands:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := executeCommandAndCaptureOutput(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "gradescan")
	assert.Contains(t, out, "commit")
}

func TestRootCommandSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"scan", "batch", "bonus", "serve", "config"} {
		assert.Contains(t, names, expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, stderr, err := executeCommandAndCaptureOutput(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error()+stderr, "unknown flag")
}

func TestRootCommandInvalidConfig(t *testing.T) {
	t.Setenv("GRADESCAN_RECOGNITION_BACKEND", "onnx")
	_, _, err := executeCommandAndCaptureOutput(t, "bonus", "missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recognition backend")
}

func slogInfoAndWarn() {
	slog.Info("info message")
	slog.Warn("warn message")
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"
	setupLogging(&buf, &cfg)

	slogInfoAndWarn()
	assert.NotContains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), `"msg":"warn message"`)

	buf.Reset()
	cfg.Verbose = true
	setupLogging(&buf, &cfg)
	slogInfoAndWarn()
	assert.Contains(t, buf.String(), "info message")
}

func TestGetConfigDefaults(t *testing.T) {
	old := globalConfig
	t.Cleanup(func() { globalConfig = old })
	globalConfig = nil
	assert.Equal(t, 8080, GetConfig().Server.Port)
}
