package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MarkerSize is the edge of the dark square painted into the top-left corner of every
// synthetic page. Only crops that start at the page's left edge contain it.
const MarkerSize = 24

// PageLayout describes a synthetic report card page. Each column is an [x0, x1) range
// filled with dark bars standing in for printed lines.
type PageLayout struct {
	Width   int
	Height  int
	Title   string
	Columns [][2]int
}

// TwoColumnPage lays out two text columns separated by a white gutter [from, to).
func TwoColumnPage(width, height, from, to int) PageLayout {
	return PageLayout{
		Width:   width,
		Height:  height,
		Title:   "Zeugnis",
		Columns: [][2]int{{60, from}, {to, width - 60}},
	}
}

// SingleColumnPage lays out one full-width text column.
func SingleColumnPage(width, height int) PageLayout {
	return PageLayout{
		Width:   width,
		Height:  height,
		Title:   "Zeugnis",
		Columns: [][2]int{{60, width - 60}},
	}
}

// Render draws the page.
func (l PageLayout) Render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	ink := &image.Uniform{color.RGBA{R: 40, G: 40, B: 40, A: 255}}
	draw.Draw(img, image.Rect(0, 0, MarkerSize, MarkerSize), ink, image.Point{}, draw.Src)

	if l.Title != "" {
		d := &font.Drawer{Dst: img, Src: ink, Face: basicfont.Face7x13, Dot: fixed.P(60, 50)}
		d.DrawString(l.Title)
	}

	top, bottom := l.Height/10, l.Height*95/100
	for _, c := range l.Columns {
		for y := top; y+20 <= bottom; y += 40 {
			draw.Draw(img, image.Rect(c[0], y, c[1], y+20), ink, image.Point{}, draw.Src)
		}
	}
	return img
}

// HasMarker reports whether the top-left corner of img holds the page marker.
func HasMarker(img *image.Gray) bool {
	if img == nil || img.Bounds().Dx() < MarkerSize || img.Bounds().Dy() < MarkerSize {
		return false
	}
	b := img.Bounds()
	return img.GrayAt(b.Min.X+MarkerSize/3, b.Min.Y+MarkerSize/3).Y < 128
}
