// Package recognition defines the text-recognition boundary. Backends are opaque and
// slow; callers pass a context and treat every failure as ErrUnavailable.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("recognition unavailable")

// Word is one recognized word with its box in image pixels.
type Word struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Result is the recognized text of one image. Confidence is 0..100.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Options carry request hints for the backend.
type Options struct {
	Locale      string
	CountryCode string
}

// Adapter recognizes text in a preprocessed image.
type Adapter interface {
	Recognize(ctx context.Context, img *imageprep.Image, opts Options, cfg *catalog.ScanConfig) (*Result, error)
}

// Func adapts a plain function to Adapter.
type Func func(ctx context.Context, img *imageprep.Image, opts Options, cfg *catalog.ScanConfig) (*Result, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, img *imageprep.Image, opts Options, cfg *catalog.ScanConfig) (*Result, error) {
	return f(ctx, img, opts, cfg)
}

// Unavailable wraps err in ErrUnavailable unless it already is one.
func Unavailable(backend string, err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, backend, err)
}

// Merge concatenates results in order; confidence is the mean over non-nil results.
func Merge(results ...*Result) *Result {
	out := &Result{}
	var texts []string
	n := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		texts = append(texts, r.Text)
		out.Words = append(out.Words, r.Words...)
		out.Confidence += r.Confidence
		n++
	}
	if n > 0 {
		out.Confidence /= float64(n)
	}
	out.Text = strings.Join(texts, "\n")
	return out
}

// MeanWordConfidence averages word confidences, or returns 0 without words.
func MeanWordConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
