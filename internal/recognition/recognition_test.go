package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
)

func TestFunc(t *testing.T) {
	var got Options
	var a Adapter = Func(func(_ context.Context, _ *imageprep.Image, opts Options, _ *catalog.ScanConfig) (*Result, error) {
		got = opts
		return &Result{Text: "Deutsch 2", Confidence: 88}, nil
	})

	res, err := a.Recognize(context.Background(), &imageprep.Image{}, Options{Locale: "de-DE"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Deutsch 2", res.Text)
	assert.Equal(t, "de-DE", got.Locale)
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable("x", nil))

	err := Unavailable("tesseract", errors.New("boom"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "tesseract: boom")

	again := Unavailable("gemini", err)
	assert.Equal(t, err, again)
}

func TestMerge(t *testing.T) {
	m := Merge(
		&Result{Text: "Deutsch 2", Confidence: 80, Words: []Word{{Text: "Deutsch"}}},
		nil,
		&Result{Text: "Mathematik 1", Confidence: 90},
	)
	assert.Equal(t, "Deutsch 2\nMathematik 1", m.Text)
	assert.InDelta(t, 85.0, m.Confidence, 1e-9)
	assert.Len(t, m.Words, 1)

	empty := Merge()
	assert.Empty(t, empty.Text)
	assert.InDelta(t, 0.0, empty.Confidence, 1e-9)
}

func TestMeanWordConfidence(t *testing.T) {
	assert.InDelta(t, 0.0, MeanWordConfidence(nil), 1e-9)
	assert.InDelta(t, 75.0, MeanWordConfidence([]Word{{Confidence: 50}, {Confidence: 100}}), 1e-9)
}
