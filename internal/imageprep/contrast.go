package imageprep

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// StretchContrast maps the luminance range between the clip-percent tails onto 0..255.
// Images whose histogram collapses to a single level are returned unchanged.
func StretchContrast(img image.Image, clipPercent float64) *image.NRGBA {
	lo, hi := histogramBounds(imaging.Histogram(img), clipPercent/100)
	if hi <= lo {
		return imaging.Clone(img)
	}

	scale := 255 / float64(hi-lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := stretch(c.R, lo, scale)
		return color.NRGBA{R: v, G: stretch(c.G, lo, scale), B: stretch(c.B, lo, scale), A: c.A}
	})
}

// histogramBounds finds the darkest and brightest levels after dropping clip of the
// mass at each end. hist is normalized to sum to 1.
func histogramBounds(hist [256]float64, clip float64) (lo, hi int) {
	var acc float64
	for lo = 0; lo < 255; lo++ {
		acc += hist[lo]
		if acc > clip {
			break
		}
	}
	acc = 0
	for hi = 255; hi > 0; hi-- {
		acc += hist[hi]
		if acc > clip {
			break
		}
	}
	return lo, hi
}

func stretch(v uint8, lo int, scale float64) uint8 {
	s := (float64(v) - float64(lo)) * scale
	return uint8(math.Max(0, math.Min(255, math.Round(s))))
}
