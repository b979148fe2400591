package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scan.ColumnFallbackThreshold)
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
log_level: debug
verbose: true
scan:
  max_image_mb: 5
  column_fallback_threshold: 6
columns:
  overlap: 0.04
matcher:
  high: 0.92
recognition:
  backend: gemini
  languages: [deu, fra]
  gemini_model: gemini-1.5-pro
catalog:
  path: /etc/gradescan/catalog.yaml
server:
  port: 9090
  scans_per_hour: 50
store:
  dsn: postgres://localhost/gradescan
`)

	loader := NewLoaderWith(viper.New())
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 5, cfg.Scan.MaxImageMB)
	assert.Equal(t, 2000, cfg.Scan.TargetWidth, "unset keys keep defaults")
	assert.Equal(t, 6, cfg.Scan.ColumnFallbackThreshold)
	assert.InDelta(t, 0.04, cfg.Columns.Overlap, 1e-9)
	assert.Equal(t, 600, cfg.Columns.MinWidth)
	assert.InDelta(t, 0.92, cfg.Matcher.High, 1e-9)
	assert.Equal(t, BackendGemini, cfg.Recognition.Backend)
	assert.Equal(t, []string{"deu", "fra"}, cfg.Recognition.Languages)
	assert.Equal(t, "gemini-1.5-pro", cfg.Recognition.GeminiModel)
	assert.Equal(t, "/etc/gradescan/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.ScansPerHour)
	assert.Equal(t, "postgres://localhost/gradescan", cfg.Store.DSN)
	assert.Equal(t, path, loader.GetConfigFileUsed())
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "server:\n  port: 7070\n")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "server: [port: 1\n")
	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithValidationFailure(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "recognition:\n  backend: onnx\n")

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := NewLoaderWith(viper.New()).LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "onnx", cfg.Recognition.Backend)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GRADESCAN_LOG_LEVEL", "warn")
	t.Setenv("GRADESCAN_SERVER_PORT", "9191")
	t.Setenv("GRADESCAN_SCAN_COLUMN_FALLBACK_THRESHOLD", "3")
	t.Setenv("GRADESCAN_RECOGNITION_GEMINI_API_KEY", "secret")
	t.Setenv("GRADESCAN_STORE_DSN", "postgres://db/gradescan")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Scan.ColumnFallbackThreshold)
	assert.Equal(t, "secret", cfg.Recognition.GeminiAPIKey)
	assert.Equal(t, "postgres://db/gradescan", cfg.Store.DSN)
}

func TestEnvironmentBeatsFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "server:\n  port: 7070\n")
	t.Setenv("GRADESCAN_SERVER_PORT", "7171")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7171, cfg.Server.Port)
}

func TestGetResolvedConfig(t *testing.T) {
	loader := NewLoaderWith(viper.New())
	loader.setDefaults()
	settings := loader.GetResolvedConfig()
	require.Contains(t, settings, "server")
	require.Contains(t, settings, "columns")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
	assert.Equal(t, DefaultConfig().Columns, cfg.Columns)

	assert.Error(t, GenerateDefaultConfigFile(path), "existing files are kept")
}

func TestWriteYAML(t *testing.T) {
	cfg := DefaultConfig()
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, &cfg))

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, cfg, back)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "gradescan"))
	assert.Equal(t, "/etc/gradescan", paths[len(paths)-1])
}
