package tesseract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguages(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		extra  []string
		want   []string
	}{
		{"german locale", "de-DE", nil, []string{"deu"}},
		{"underscore locale with extras", "fr_CH", []string{"deu", "fra"}, []string{"fra", "deu"}},
		{"unknown locale falls back", "ja-JP", nil, []string{"eng"}},
		{"empty locale uses extras", "", []string{"deu", " "}, []string{"deu"}},
		{"bare language", "NL", nil, []string{"nld"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Languages(tt.locale, tt.extra))
		})
	}
}
