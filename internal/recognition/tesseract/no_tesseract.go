//go:build !tesseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// Adapter is the placeholder used when built without the tesseract tag.
type Adapter struct {
	languages []string
}

// New creates the placeholder adapter.
func New(languages []string) *Adapter {
	return &Adapter{languages: languages}
}

// Recognize always fails with recognition.ErrUnavailable.
func (a *Adapter) Recognize(_ context.Context, _ *imageprep.Image, _ recognition.Options, _ *catalog.ScanConfig) (*recognition.Result, error) {
	return nil, fmt.Errorf("%w: built without tesseract support; rebuild with -tags=tesseract", recognition.ErrUnavailable)
}
