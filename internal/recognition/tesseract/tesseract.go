//go:build tesseract

package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// Adapter runs one gosseract client per call.
type Adapter struct {
	languages []string
}

// New creates an adapter that adds the given languages to the locale's language.
func New(languages []string) *Adapter {
	return &Adapter{languages: languages}
}

// Recognize implements recognition.Adapter.
func (a *Adapter) Recognize(ctx context.Context, img *imageprep.Image, opts recognition.Options, _ *catalog.ScanConfig) (*recognition.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(Languages(opts.Locale, a.languages)...); err != nil {
		return nil, recognition.Unavailable("tesseract", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, recognition.Unavailable("tesseract", err)
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return nil, recognition.Unavailable("tesseract", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, recognition.Unavailable("tesseract", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, recognition.Unavailable("tesseract", err)
	}

	words := make([]recognition.Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, recognition.Word{Text: b.Word, Confidence: b.Confidence, Box: b.Box})
	}

	return &recognition.Result{
		Text:       text,
		Confidence: recognition.MeanWordConfidence(words),
		Words:      words,
	}, nil
}
