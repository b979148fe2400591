// Package scan runs the report-card ingestion cascade: preprocessing, full-page
// recognition, column fallbacks, parsing, subject matching and country detection.
package scan

import (
	"errors"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/columns"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/matcher"
	"github.com/MeKo-Tech/gradescan/internal/parser"
	"github.com/MeKo-Tech/gradescan/internal/ratelimit"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// Path names the extraction strategy that produced the subjects.
type Path string

const (
	PathFull         Path = "full"
	PathColumns      Path = "columns"
	PathForcedCenter Path = "forced_center"
)

// Stage identifies a progress event.
type Stage string

const (
	StagePreprocessed Stage = "preprocessed"
	StageFull         Stage = "full_recognized"
	StageColumns      Stage = "columns_recognized"
	StageForcedCenter Stage = "forced_center_recognized"
	StageMatched      Stage = "matched"
)

// Event reports pipeline progress to interactive callers.
type Event struct {
	Stage    Stage `json:"stage"`
	Path     Path  `json:"path,omitempty"`
	Subjects int   `json:"subjects"`
}

// Request is one scan invocation.
type Request struct {
	Image       []byte
	Locale      string
	CountryHint string
	CallerID    string
	// Progress, when set, receives stage events synchronously.
	Progress func(Event)
}

// Attempt records one extraction path of the cascade.
type Attempt struct {
	Path     Path     `json:"path"`
	Subjects int      `json:"subjects"`
	Accepted bool     `json:"accepted"`
	Error    string   `json:"error,omitempty"`
	Lines    []string `json:"lines"`
}

// Debug explains how a result came about.
type Debug struct {
	Path          Path              `json:"path"`
	Attempts      []Attempt         `json:"attempts"`
	Gutter        *columns.Analysis `json:"gutter,omitempty"`
	CandidateRows []parser.Row      `json:"candidate_rows"`
	DroppedNoise  []matcher.Row     `json:"dropped_noise"`
	Image         *ImageInfo        `json:"image,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
}

// ImageInfo describes the preprocessed page.
type ImageInfo struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	PDF    bool `json:"pdf,omitempty"`
}

// Result is the outcome of a scan.
type Result struct {
	Subjects             []matcher.Row   `json:"subjects"`
	Metadata             parser.Metadata `json:"metadata"`
	OverallConfidence    float64         `json:"overall_confidence"`
	SuggestedCountryCode string          `json:"suggested_country_code,omitempty"`
	Debug                Debug           `json:"debug_info"`
}

// Config holds the pipeline settings.
type Config struct {
	Preprocess imageprep.Config `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Columns    columns.Config   `mapstructure:"columns"    yaml:"columns"    json:"columns"`
	Matcher    matcher.Config   `mapstructure:"matcher"    yaml:"matcher"    json:"matcher"`

	// ColumnFallbackThreshold is the subject count below which the forced centre split runs.
	ColumnFallbackThreshold int `mapstructure:"column_fallback_threshold" yaml:"column_fallback_threshold" json:"column_fallback_threshold"`
}

// DefaultConfig returns the component defaults and a fallback threshold of 8.
func DefaultConfig() Config {
	return Config{
		Preprocess:              imageprep.DefaultConfig(),
		Columns:                 columns.DefaultConfig(),
		Matcher:                 matcher.DefaultConfig(),
		ColumnFallbackThreshold: 8,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	adapter recognition.Adapter
	limiter ratelimit.Limiter
	catalog *catalog.ScanConfig
}

// NewBuilder creates a builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithAdapter sets the recognition backend. Required.
func (b *Builder) WithAdapter(a recognition.Adapter) *Builder {
	b.adapter = a
	return b
}

// WithLimiter enables per-caller quotas.
func (b *Builder) WithLimiter(l ratelimit.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithCatalog sets the subject catalog. The built-in catalog is used otherwise.
func (b *Builder) WithCatalog(c *catalog.ScanConfig) *Builder {
	b.catalog = c
	return b
}

// WithColumnFallbackThreshold overrides the forced-split threshold.
func (b *Builder) WithColumnFallbackThreshold(n int) *Builder {
	b.cfg.ColumnFallbackThreshold = n
	return b
}

// Build validates the configuration and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.adapter == nil {
		return nil, errors.New("scan: recognition adapter is required")
	}
	if b.cfg.ColumnFallbackThreshold < 0 {
		return nil, errors.New("scan: column fallback threshold must not be negative")
	}
	cat := b.catalog
	if cat == nil {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:      b.cfg,
		adapter:  b.adapter,
		limiter:  b.limiter,
		catalog:  cat,
		pre:      imageprep.New(b.cfg.Preprocess),
		splitter: columns.New(b.cfg.Columns),
		matcher:  matcher.New(b.cfg.Matcher),
	}, nil
}

// Pipeline is safe for concurrent use; all per-scan state lives on the stack.
type Pipeline struct {
	cfg      Config
	adapter  recognition.Adapter
	limiter  ratelimit.Limiter
	catalog  *catalog.ScanConfig
	pre      *imageprep.Preprocessor
	splitter *columns.Splitter
	matcher  *matcher.Matcher
}

// Catalog returns the catalog the pipeline matches against.
func (p *Pipeline) Catalog() *catalog.ScanConfig { return p.catalog }
