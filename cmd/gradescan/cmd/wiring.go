package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/config"
	"github.com/MeKo-Tech/gradescan/internal/ratelimit"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
	"github.com/MeKo-Tech/gradescan/internal/recognition/gemini"
	"github.com/MeKo-Tech/gradescan/internal/recognition/tesseract"
	"github.com/MeKo-Tech/gradescan/internal/scan"
)

// newAdapter returns the configured recognition backend.
func newAdapter(cfg config.RecognitionConfig) (recognition.Adapter, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	case config.BackendTesseract, "":
		return tesseract.New(cfg.Languages), nil
	default:
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Backend)
	}
}

// loadCatalog reads the catalog file, or returns the built-in catalog.
func loadCatalog(path string) (*catalog.ScanConfig, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newPipeline builds the scan pipeline from configuration. limiter may be nil.
func newPipeline(cfg *config.Config, limiter ratelimit.Limiter) (*scan.Pipeline, error) {
	adapter, err := newAdapter(cfg.Recognition)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	b := scan.NewBuilder().
		WithConfig(cfg.ToScanConfig()).
		WithAdapter(adapter).
		WithCatalog(cat)
	if limiter != nil {
		b = b.WithLimiter(limiter)
	}
	return b.Build()
}
