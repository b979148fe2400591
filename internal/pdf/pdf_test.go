package pdf

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF([]byte("\x89PNG\r\n")))
	assert.False(t, IsPDF(nil))
	assert.False(t, IsPDF([]byte("%PD")))
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		want        int
		expectError bool
	}{
		{name: "valid page file", filename: "page_1_image_1.png", want: 1},
		{name: "valid page file with jpg", filename: "page_10_image_2.jpg", want: 10},
		{name: "extra underscores", filename: "page_123_image_1_extra.png", want: 123},
		{name: "not a page file", filename: "image_1.png", expectError: true},
		{name: "invalid format", filename: "page_", expectError: true},
		{name: "invalid page number", filename: "page_abc_image_1.png", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name)) //nolint:gosec // controlled test path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	if filepath.Ext(name) == ".jpg" {
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 80}))
		return
	}
	require.NoError(t, png.Encode(f, img))
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "page_1_image_1.png", 8, 6)
	writeImage(t, dir, "page_1_image_2.jpg", 40, 30)
	writeImage(t, dir, "page_2_image_1.png", 8, 6)
	writeImage(t, dir, "not_a_match.png", 8, 6)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_3_image_1.png"), []byte("corrupt"), 0o600))

	result, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Len(t, result[1], 2)
	require.Len(t, result[2], 1)

	best := largest(result[1])
	require.NotNil(t, best)
	assert.Equal(t, 40, best.Bounds().Dx())
	assert.Nil(t, largest(result[3]))
}

func TestPageImage_Errors(t *testing.T) {
	_, err := PageImage([]byte("%PDF-1.4 garbage"), 1)
	require.Error(t, err)

	_, err = PageImage([]byte("%PDF-1.4"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page")
}
