// Package imageprep normalizes uploaded report-card photos before text recognition:
// orientation fix, bounded width, grayscale, sharpening and contrast normalization.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	// Decoders for the accepted upload formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidImage is returned for empty or undecodable input.
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge is returned when the input exceeds the byte cap.
	ErrImageTooLarge = errors.New("image too large")
)

// Config controls preprocessing.
type Config struct {
	MaxBytes            int64   `mapstructure:"max_bytes"             yaml:"max_bytes"             json:"max_bytes"`
	TargetWidth         int     `mapstructure:"target_width"          yaml:"target_width"          json:"target_width"`
	SharpenSigma        float64 `mapstructure:"sharpen_sigma"         yaml:"sharpen_sigma"         json:"sharpen_sigma"`
	ContrastClipPercent float64 `mapstructure:"contrast_clip_percent" yaml:"contrast_clip_percent" json:"contrast_clip_percent"`
}

// DefaultConfig returns a 10 MB cap, 2000 px target width, sigma 1 sharpening and 0.5% clipping.
func DefaultConfig() Config {
	return Config{
		MaxBytes:            10 << 20,
		TargetWidth:         2000,
		SharpenSigma:        1.0,
		ContrastClipPercent: 0.5,
	}
}

// Image is a preprocessed page: lossless PNG bytes for recognizers plus the pixels for
// column analysis and cropping.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Pixels *image.Gray
}

// Preprocessor applies the normalization chain.
type Preprocessor struct {
	cfg Config
}

// New creates a preprocessor.
func New(cfg Config) *Preprocessor {
	return &Preprocessor{cfg: cfg}
}

// CheckSize rejects empty or oversized input without decoding it.
func (p *Preprocessor) CheckSize(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty input", ErrInvalidImage)
	}
	if p.cfg.MaxBytes > 0 && int64(len(raw)) > p.cfg.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrImageTooLarge, len(raw), p.cfg.MaxBytes)
	}
	return nil
}

// Preprocess decodes raw bytes and returns the normalized page.
func (p *Preprocessor) Preprocess(raw []byte) (*Image, error) {
	if err := p.CheckSize(raw); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrInvalidImage)
	}

	return p.Normalize(img)
}

// Normalize runs the pixel chain on an already decoded image.
func (p *Preprocessor) Normalize(img image.Image) (*Image, error) {
	if p.cfg.TargetWidth > 0 && img.Bounds().Dx() > p.cfg.TargetWidth {
		img = imaging.Resize(img, p.cfg.TargetWidth, 0, imaging.Lanczos)
	}

	out := imaging.Grayscale(img)
	if p.cfg.SharpenSigma > 0 {
		out = imaging.Sharpen(out, p.cfg.SharpenSigma)
	}
	out = StretchContrast(out, p.cfg.ContrastClipPercent)

	return FromImage(out)
}

// FromImage converts any image (typically a column crop) into an Image without
// further processing.
func FromImage(img image.Image) (*Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty crop", ErrInvalidImage)
	}

	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || b.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return &Image{
		Data:   buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: gray,
	}, nil
}
