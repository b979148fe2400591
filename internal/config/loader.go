package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "gradescan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "GRADESCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag bindings apply.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader on a caller-owned viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first config file found on the search paths, then environment
// variables, on top of DefaultConfig, and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		// a missing file leaves defaults and environment
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.decode(true)
}

// LoadWithFile loads configuration from a specific file path. An empty path searches.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.prepare()
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.decode(true)
}

// LoadWithoutValidation is Load for commands that only display the configuration.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		for _, p := range GetConfigSearchPaths() {
			l.v.AddConfigPath(p)
		}
	}
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.decode(false)
}

func (l *Loader) decode(validate bool) (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if !validate {
		return &config, nil
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetResolvedConfig returns the current resolved settings.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

func (l *Loader) prepare() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
	l.setDefaults()
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("scan.max_image_mb", d.Scan.MaxImageMB)
	l.v.SetDefault("scan.target_width", d.Scan.TargetWidth)
	l.v.SetDefault("scan.sharpen_sigma", d.Scan.SharpenSigma)
	l.v.SetDefault("scan.contrast_clip_percent", d.Scan.ContrastClipPercent)
	l.v.SetDefault("scan.column_fallback_threshold", d.Scan.ColumnFallbackThreshold)

	l.v.SetDefault("columns.min_width", d.Columns.MinWidth)
	l.v.SetDefault("columns.analysis_width", d.Columns.AnalysisWidth)
	l.v.SetDefault("columns.band_top", d.Columns.BandTop)
	l.v.SetDefault("columns.band_bottom", d.Columns.BandBottom)
	l.v.SetDefault("columns.search_start", d.Columns.SearchStart)
	l.v.SetDefault("columns.search_end", d.Columns.SearchEnd)
	l.v.SetDefault("columns.window", d.Columns.Window)
	l.v.SetDefault("columns.whiteness", d.Columns.Whiteness)
	l.v.SetDefault("columns.overlap", d.Columns.Overlap)
	l.v.SetDefault("columns.min_column_width", d.Columns.MinColumnWidth)

	l.v.SetDefault("matcher.high", d.Matcher.High)
	l.v.SetDefault("matcher.medium", d.Matcher.Medium)
	l.v.SetDefault("matcher.low", d.Matcher.Low)

	l.v.SetDefault("recognition.backend", d.Recognition.Backend)
	l.v.SetDefault("recognition.languages", d.Recognition.Languages)
	l.v.SetDefault("recognition.gemini_api_key", d.Recognition.GeminiAPIKey)
	l.v.SetDefault("recognition.gemini_model", d.Recognition.GeminiModel)

	l.v.SetDefault("catalog.path", d.Catalog.Path)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit_enabled", d.Server.RateLimitEnabled)
	l.v.SetDefault("server.scans_per_hour", d.Server.ScansPerHour)

	l.v.SetDefault("store.dsn", d.Store.DSN)
}

// WriteYAML writes cfg as YAML to w.
func WriteYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// GenerateDefaultConfigFile writes the default configuration to filename,
// gradescan.yaml when empty. Existing files are not overwritten.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	v := viper.New()
	NewLoaderWith(v).setDefaults()
	return v.SafeWriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists && configDir != "" {
		paths = append(paths, filepath.Join(configDir, "gradescan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gradescan"))
	}

	return append(paths, "/etc/gradescan")
}
