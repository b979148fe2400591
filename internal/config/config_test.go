package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const infoLevel = "info"

// TestDefaultConfig verifies that DefaultConfig returns the documented defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.False(t, cfg.Verbose)

	assert.Equal(t, 10, cfg.Scan.MaxImageMB)
	assert.Equal(t, 2000, cfg.Scan.TargetWidth)
	assert.InDelta(t, 1.0, cfg.Scan.SharpenSigma, 1e-9)
	assert.InDelta(t, 0.5, cfg.Scan.ContrastClipPercent, 1e-9)
	assert.Equal(t, 8, cfg.Scan.ColumnFallbackThreshold)

	assert.Equal(t, 600, cfg.Columns.MinWidth)
	assert.Equal(t, 100, cfg.Columns.MinColumnWidth)
	assert.InDelta(t, 0.02, cfg.Columns.Overlap, 1e-9)

	assert.InDelta(t, 0.9, cfg.Matcher.High, 1e-9)
	assert.InDelta(t, 0.75, cfg.Matcher.Medium, 1e-9)
	assert.InDelta(t, 0.5, cfg.Matcher.Low, 1e-9)

	assert.Equal(t, BackendTesseract, cfg.Recognition.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimitEnabled)
	assert.Equal(t, 20, cfg.Server.ScansPerHour)
	assert.Empty(t, cfg.Store.DSN)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"backend", func(c *Config) { c.Recognition.Backend = "onnx" }, "invalid recognition backend"},
		{"gemini backend", func(c *Config) { c.Recognition.Backend = BackendGemini }, ""},
		{"max image", func(c *Config) { c.Scan.MaxImageMB = 0 }, "max_image_mb"},
		{"target width", func(c *Config) { c.Scan.TargetWidth = -1 }, "target_width"},
		{"sharpen", func(c *Config) { c.Scan.SharpenSigma = -0.1 }, "sharpen_sigma"},
		{"contrast clip", func(c *Config) { c.Scan.ContrastClipPercent = 50 }, "contrast_clip_percent"},
		{"fallback threshold", func(c *Config) { c.Scan.ColumnFallbackThreshold = -1 }, "column_fallback_threshold"},
		{"disabled fallback", func(c *Config) { c.Scan.ColumnFallbackThreshold = 0 }, ""},
		{"overlap", func(c *Config) { c.Columns.Overlap = 1.5 }, "columns.overlap"},
		{"band order", func(c *Config) { c.Columns.BandTop = 0.9 }, "band"},
		{"search order", func(c *Config) { c.Columns.SearchStart = 0.8 }, "search range"},
		{"window", func(c *Config) { c.Columns.Window = 0 }, "columns sizes"},
		{"matcher range", func(c *Config) { c.Matcher.Low = -0.1 }, "matcher.low"},
		{"matcher order", func(c *Config) { c.Matcher.Medium = 0.95 }, "matcher thresholds"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server port"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "timeout"},
		{"quota", func(c *Config) { c.Server.ScansPerHour = 0 }, "scans_per_hour"},
		{"quota disabled", func(c *Config) {
			c.Server.RateLimitEnabled = false
			c.Server.ScansPerHour = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToScanConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.MaxImageMB = 4
	cfg.Scan.TargetWidth = 1600
	cfg.Scan.ColumnFallbackThreshold = 5
	cfg.Columns.Overlap = 0.05
	cfg.Matcher.High = 0.95

	sc := cfg.ToScanConfig()
	assert.Equal(t, int64(4<<20), sc.Preprocess.MaxBytes)
	assert.Equal(t, 1600, sc.Preprocess.TargetWidth)
	assert.InDelta(t, 1.0, sc.Preprocess.SharpenSigma, 1e-9)
	assert.Equal(t, 5, sc.ColumnFallbackThreshold)
	assert.InDelta(t, 0.05, sc.Columns.Overlap, 1e-9)
	assert.InDelta(t, 0.95, sc.Matcher.High, 1e-9)
}

func TestToServerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.CORSOrigin = "https://app.example.com"
	cfg.Scan.MaxImageMB = 12

	sc := cfg.ToServerConfig("1.0.0")
	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.Equal(t, 8080, sc.Port)
	assert.Equal(t, "https://app.example.com", sc.CORSOrigin)
	assert.Equal(t, int64(12), sc.MaxUploadMB)
	assert.Equal(t, 60, sc.TimeoutSec)
	assert.Equal(t, "1.0.0", sc.Version)
}

func TestValidateThreshold(t *testing.T) {
	tests := []struct {
		value   float64
		wantErr bool
	}{
		{0, false},
		{0.5, false},
		{1, false},
		{-0.01, true},
		{1.01, true},
	}
	for _, tt := range tests {
		err := validateThreshold(tt.value, "x")
		assert.Equal(t, tt.wantErr, err != nil, "value %v", tt.value)
	}
}
