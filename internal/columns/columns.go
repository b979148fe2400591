// Package columns finds the vertical whitespace gutter of two-column report cards
// and splits the page along it.
package columns

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config holds the gutter-detection thresholds. Fractions are relative to the page.
type Config struct {
	MinWidth       int     `mapstructure:"min_width"        yaml:"min_width"        json:"min_width"`
	AnalysisWidth  int     `mapstructure:"analysis_width"   yaml:"analysis_width"   json:"analysis_width"`
	BandTop        float64 `mapstructure:"band_top"         yaml:"band_top"         json:"band_top"`
	BandBottom     float64 `mapstructure:"band_bottom"      yaml:"band_bottom"      json:"band_bottom"`
	SearchStart    float64 `mapstructure:"search_start"     yaml:"search_start"     json:"search_start"`
	SearchEnd      float64 `mapstructure:"search_end"       yaml:"search_end"       json:"search_end"`
	Window         int     `mapstructure:"window"           yaml:"window"           json:"window"`
	Whiteness      float64 `mapstructure:"whiteness"        yaml:"whiteness"        json:"whiteness"`
	Overlap        float64 `mapstructure:"overlap"          yaml:"overlap"          json:"overlap"`
	MinColumnWidth int     `mapstructure:"min_column_width" yaml:"min_column_width" json:"min_column_width"`
}

// DefaultConfig returns the standard gutter-detection settings.
func DefaultConfig() Config {
	return Config{
		MinWidth:       600,
		AnalysisWidth:  200,
		BandTop:        0.2,
		BandBottom:     0.8,
		SearchStart:    0.3,
		SearchEnd:      0.7,
		Window:         5,
		Whiteness:      0.3,
		Overlap:        0.02,
		MinColumnWidth: 100,
	}
}

// Analysis describes one gutter search.
type Analysis struct {
	Found      bool    `json:"found"`
	Skipped    bool    `json:"skipped,omitempty"`
	GutterX    int     `json:"gutter_x,omitempty"`
	Brightness float64 `json:"brightness"`
	Threshold  float64 `json:"threshold"`
	Average    float64 `json:"average"`
}

// Columns is a split page. Both halves include the overlap margin.
type Columns struct {
	Left   image.Image
	Right  image.Image
	SplitX int
	Forced bool
}

// Splitter detects gutters and crops columns.
type Splitter struct {
	cfg Config
}

// New creates a splitter.
func New(cfg Config) *Splitter {
	return &Splitter{cfg: cfg}
}

// DetectGutter returns the gutter x in original-image pixels.
func (s *Splitter) DetectGutter(img image.Image) (int, bool) {
	a := s.Analyze(img)
	return a.GutterX, a.Found
}

// Analyze runs the gutter search and reports its intermediate values.
func (s *Splitter) Analyze(img image.Image) Analysis {
	width := img.Bounds().Dx()
	if width < s.cfg.MinWidth || s.cfg.AnalysisWidth <= 0 || s.cfg.Window <= 0 {
		return Analysis{Skipped: true}
	}

	small := imaging.Grayscale(imaging.Resize(img, s.cfg.AnalysisWidth, 0, imaging.Box))
	sw, sh := small.Bounds().Dx(), small.Bounds().Dy()

	y0 := int(float64(sh) * s.cfg.BandTop)
	y1 := int(float64(sh) * s.cfg.BandBottom)
	if y1 <= y0 {
		y1 = min(sh, y0+1)
	}

	colAvg := make([]float64, sw)
	column := make([]float64, y1-y0)
	for x := range sw {
		for y := y0; y < y1; y++ {
			column[y-y0] = float64(small.Pix[y*small.Stride+x*4])
		}
		colAvg[x] = stat.Mean(column, nil)
	}
	avg := stat.Mean(colAvg, nil)

	start := int(float64(sw) * s.cfg.SearchStart)
	end := int(float64(sw) * s.cfg.SearchEnd)
	if end-start < s.cfg.Window {
		return Analysis{Average: avg}
	}

	rolling := make([]float64, end-start-s.cfg.Window+1)
	for i := range rolling {
		rolling[i] = stat.Mean(colAvg[start+i:start+i+s.cfg.Window], nil)
	}
	// a wide gutter yields a plateau of equally bright windows; take its middle
	best := floats.MaxIdx(rolling)
	last := best
	for last+1 < len(rolling) && rolling[last+1] >= rolling[best] {
		last++
	}
	center := start + (best+last)/2 + s.cfg.Window/2

	a := Analysis{
		Brightness: rolling[best],
		Threshold:  avg + (255-avg)*s.cfg.Whiteness,
		Average:    avg,
	}
	if a.Brightness <= a.Threshold {
		return a
	}
	a.Found = true
	a.GutterX = int(math.Round((float64(center) + 0.5) * float64(width) / float64(sw)))
	return a
}

// Split cuts the page at the detected gutter.
func (s *Splitter) Split(img image.Image) (Columns, bool) {
	x, ok := s.DetectGutter(img)
	if !ok {
		return Columns{}, false
	}
	return s.SplitAt(img, x)
}

// ForceSplitCenter cuts the page at its midpoint regardless of content.
func (s *Splitter) ForceSplitCenter(img image.Image) (Columns, bool) {
	c, ok := s.SplitAt(img, img.Bounds().Dx()/2)
	c.Forced = true
	return c, ok
}

// SplitAt cuts the page at x with the configured overlap. Splits leaving either side
// narrower than MinColumnWidth are rejected.
func (s *Splitter) SplitAt(img image.Image, x int) (Columns, bool) {
	b := img.Bounds()
	width := b.Dx()
	overlap := int(float64(width) * s.cfg.Overlap)

	leftW := min(width, x+overlap)
	rightX := max(0, x-overlap)
	if leftW <= 0 || rightX >= width || leftW < s.cfg.MinColumnWidth || width-rightX < s.cfg.MinColumnWidth {
		return Columns{}, false
	}

	return Columns{
		Left:   imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+leftW, b.Max.Y)),
		Right:  imaging.Crop(img, image.Rect(b.Min.X+rightX, b.Min.Y, b.Max.X, b.Max.Y)),
		SplitX: x,
	}, true
}
