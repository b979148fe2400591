package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/gradescan/internal/columns"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/matcher"
	"github.com/MeKo-Tech/gradescan/internal/scan"
	"github.com/MeKo-Tech/gradescan/internal/server"
)

// Recognition backends.
const (
	BackendTesseract = "tesseract"
	BackendGemini    = "gemini"
)

// Config represents the complete configuration for gradescan.
// It covers every command (scan, bonus, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scan        ScanConfig        `mapstructure:"scan" yaml:"scan" json:"scan"`
	Columns     columns.Config    `mapstructure:"columns" yaml:"columns" json:"columns"`
	Matcher     matcher.Config    `mapstructure:"matcher" yaml:"matcher" json:"matcher"`
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition" json:"recognition"`
	Catalog     CatalogConfig     `mapstructure:"catalog" yaml:"catalog" json:"catalog"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store" json:"store"`
}

// ScanConfig contains preprocessing and cascade settings.
type ScanConfig struct {
	MaxImageMB              int     `mapstructure:"max_image_mb" yaml:"max_image_mb" json:"max_image_mb"`
	TargetWidth             int     `mapstructure:"target_width" yaml:"target_width" json:"target_width"`
	SharpenSigma            float64 `mapstructure:"sharpen_sigma" yaml:"sharpen_sigma" json:"sharpen_sigma"`
	ContrastClipPercent     float64 `mapstructure:"contrast_clip_percent" yaml:"contrast_clip_percent" json:"contrast_clip_percent"`
	ColumnFallbackThreshold int     `mapstructure:"column_fallback_threshold" yaml:"column_fallback_threshold" json:"column_fallback_threshold"`
}

// RecognitionConfig selects and configures the text-recognition backend.
type RecognitionConfig struct {
	Backend      string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	Languages    []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	GeminiAPIKey string   `mapstructure:"gemini_api_key" yaml:"gemini_api_key" json:"-"`
	GeminiModel  string   `mapstructure:"gemini_model" yaml:"gemini_model" json:"gemini_model"`
}

// CatalogConfig points at an optional YAML subject catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host             string `mapstructure:"host" yaml:"host" json:"host"`
	Port             int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin       string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	TimeoutSec       int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout  int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitEnabled bool   `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	ScansPerHour     int    `mapstructure:"scans_per_hour" yaml:"scans_per_hour" json:"scans_per_hour"`
}

// StoreConfig configures the optional Postgres store.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn" json:"-"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	prep := imageprep.DefaultConfig()
	return Config{
		LogLevel: "info",
		Scan: ScanConfig{
			MaxImageMB:              int(prep.MaxBytes >> 20),
			TargetWidth:             prep.TargetWidth,
			SharpenSigma:            prep.SharpenSigma,
			ContrastClipPercent:     prep.ContrastClipPercent,
			ColumnFallbackThreshold: scan.DefaultConfig().ColumnFallbackThreshold,
		},
		Columns: columns.DefaultConfig(),
		Matcher: matcher.DefaultConfig(),
		Recognition: RecognitionConfig{
			Backend:   BackendTesseract,
			Languages: []string{"deu", "eng", "fra", "nld"},
		},
		Server: ServerConfig{
			Host:             "localhost",
			Port:             8080,
			CORSOrigin:       "*",
			TimeoutSec:       60,
			ShutdownTimeout:  10,
			RateLimitEnabled: true,
			ScansPerHour:     20,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validBackends := []string{BackendTesseract, BackendGemini}
	if !slices.Contains(validBackends, c.Recognition.Backend) {
		return fmt.Errorf("invalid recognition backend: %s (must be one of: %s)", c.Recognition.Backend, strings.Join(validBackends, ", "))
	}

	if c.Scan.MaxImageMB <= 0 {
		return fmt.Errorf("invalid scan.max_image_mb: %d (must be positive)", c.Scan.MaxImageMB)
	}
	if c.Scan.TargetWidth <= 0 {
		return fmt.Errorf("invalid scan.target_width: %d (must be positive)", c.Scan.TargetWidth)
	}
	if c.Scan.SharpenSigma < 0 {
		return fmt.Errorf("invalid scan.sharpen_sigma: %.2f (must not be negative)", c.Scan.SharpenSigma)
	}
	if c.Scan.ContrastClipPercent < 0 || c.Scan.ContrastClipPercent >= 50 {
		return fmt.Errorf("invalid scan.contrast_clip_percent: %.2f (must be in [0, 50))", c.Scan.ContrastClipPercent)
	}
	if c.Scan.ColumnFallbackThreshold < 0 {
		return fmt.Errorf("invalid scan.column_fallback_threshold: %d (must not be negative)", c.Scan.ColumnFallbackThreshold)
	}

	if err := c.validateColumns(); err != nil {
		return err
	}
	if err := c.validateMatcher(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitEnabled && c.Server.ScansPerHour <= 0 {
		return fmt.Errorf("invalid server.scans_per_hour: %d (must be positive when rate limiting is enabled)", c.Server.ScansPerHour)
	}
	return nil
}

func (c *Config) validateColumns() error {
	col := c.Columns
	for name, v := range map[string]float64{
		"columns.band_top":     col.BandTop,
		"columns.band_bottom":  col.BandBottom,
		"columns.search_start": col.SearchStart,
		"columns.search_end":   col.SearchEnd,
		"columns.whiteness":    col.Whiteness,
		"columns.overlap":      col.Overlap,
	} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}
	if col.BandTop >= col.BandBottom {
		return fmt.Errorf("invalid columns band: top %.2f must be above bottom %.2f", col.BandTop, col.BandBottom)
	}
	if col.SearchStart >= col.SearchEnd {
		return fmt.Errorf("invalid columns search range: %.2f..%.2f", col.SearchStart, col.SearchEnd)
	}
	if col.AnalysisWidth <= 0 || col.Window <= 0 || col.MinColumnWidth <= 0 || col.MinWidth <= 0 {
		return fmt.Errorf("invalid columns sizes: min_width, analysis_width, window and min_column_width must be positive")
	}
	return nil
}

func (c *Config) validateMatcher() error {
	m := c.Matcher
	for name, v := range map[string]float64{"matcher.high": m.High, "matcher.medium": m.Medium, "matcher.low": m.Low} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}
	if m.High < m.Medium || m.Medium < m.Low {
		return fmt.Errorf("invalid matcher thresholds: need high >= medium >= low, got %.2f/%.2f/%.2f", m.High, m.Medium, m.Low)
	}
	return nil
}

// ToScanConfig converts the config to the pipeline configuration.
func (c *Config) ToScanConfig() scan.Config {
	return scan.Config{
		Preprocess: imageprep.Config{
			MaxBytes:            int64(c.Scan.MaxImageMB) << 20,
			TargetWidth:         c.Scan.TargetWidth,
			SharpenSigma:        c.Scan.SharpenSigma,
			ContrastClipPercent: c.Scan.ContrastClipPercent,
		},
		Columns:                 c.Columns,
		Matcher:                 c.Matcher,
		ColumnFallbackThreshold: c.Scan.ColumnFallbackThreshold,
	}
}

// ToServerConfig converts the config to the HTTP server configuration.
func (c *Config) ToServerConfig(version string) server.Config {
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Scan.MaxImageMB),
		TimeoutSec:  c.Server.TimeoutSec,
		Version:     version,
	}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
