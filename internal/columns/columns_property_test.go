package columns

import (
	"image"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSplitAt_WidthInvariants verifies accepted splits keep both sides wide enough
// and overlap in the middle.
func TestSplitAt_WidthInvariants(t *testing.T) {
	s := New(DefaultConfig())
	properties := gopter.NewProperties(nil)

	properties.Property("both sides >= min width and left+right > width", prop.ForAll(
		func(width, split int) bool {
			img := image.NewGray(image.Rect(0, 0, width, 10))
			cols, ok := s.SplitAt(img, split)
			if !ok {
				return true
			}
			l, r := cols.Left.Bounds().Dx(), cols.Right.Bounds().Dx()
			return l >= 100 && r >= 100 && l+r > width
		},
		gen.IntRange(50, 4000),
		gen.IntRange(-100, 4100),
	))

	properties.Property("forced split accepted iff both halves fit", prop.ForAll(
		func(width int) bool {
			img := image.NewGray(image.Rect(0, 0, width, 10))
			cols, ok := s.ForceSplitCenter(img)
			if !ok {
				return width/2+int(float64(width)*0.02) < 100
			}
			return cols.Left.Bounds().Dx()+cols.Right.Bounds().Dx() > width
		},
		gen.IntRange(50, 4000),
	))

	properties.TestingRun(t)
}
