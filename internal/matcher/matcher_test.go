package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/parser"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Französisch", "franzosisch"},
		{"Straße", "strasse"},
		{"  Politik/Wirtschaft ", "politik wirtschaft"},
		{"ÉCOLE", "ecole"},
		{"Deutsch:", "deutsch"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("kunst", "kunst"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("", "kunst"), 1e-9)
	assert.InDelta(t, 1-1.0/7, Similarity("deutch", "deutsch"), 1e-9)
	// abbreviation floor
	assert.GreaterOrEqual(t, Similarity("mathe", "mathematik"), prefixFloor)
	// word containment floor
	assert.GreaterOrEqual(t, Similarity("religion", "katholische religion"), containmentFloor)
	// short prefixes get no floor
	assert.Less(t, Similarity("ma", "mathematik"), 0.5)
}

func TestMatcher_Tier(t *testing.T) {
	m := New(DefaultConfig())
	assert.Equal(t, TierHigh, m.Tier(1))
	assert.Equal(t, TierHigh, m.Tier(0.95))
	assert.Equal(t, TierMedium, m.Tier(0.8))
	assert.Equal(t, TierLow, m.Tier(0.6))
	assert.Equal(t, TierNone, m.Tier(0.2))
}

func TestMatcher_Match(t *testing.T) {
	m := New(DefaultConfig())
	cfg := catalog.Default()

	tests := []struct {
		name     string
		original string
		wantID   string
		wantTier Tier
	}{
		{"exact name", "Erdkunde", "geography", TierHigh},
		{"alias", "Mathe", "math", TierHigh},
		{"case and accents", "FRANZOSISCH", "french", TierHigh},
		{"ocr typo", "Mathematikk", "math", TierHigh},
		{"missing letter", "Deutch", "german", TierMedium},
		{"abbreviated with suffix", "Religion ev.", "religion", TierMedium},
		{"unknown", "Qwzrtplk", "", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := m.Match([]parser.Row{{OriginalName: tt.original, Grade: "2"}}, cfg)
			require.Len(t, rows, 1)
			r := rows[0]
			assert.Equal(t, tt.wantTier, r.Confidence)
			assert.Equal(t, tt.wantID, r.MatchedSubjectID)
			assert.Equal(t, tt.original, r.OriginalName)
			assert.Equal(t, "2", r.Grade)
			assert.NotEmpty(t, r.Rationale)
		})
	}
}

func TestMatcher_CoreFlagAndEmptyCatalog(t *testing.T) {
	m := New(DefaultConfig())

	r := m.MatchRow(parser.Row{OriginalName: "Deutsch", Grade: "1"}, catalog.Default())
	assert.True(t, r.IsCore)
	assert.Equal(t, "Deutsch", r.MatchedSubjectName)
	assert.True(t, r.Matched())

	r = m.MatchRow(parser.Row{OriginalName: "Deutsch", Grade: "1"}, nil)
	assert.Equal(t, TierNone, r.Confidence)
	assert.False(t, r.Matched())
	assert.Contains(t, r.Rationale, "no catalog candidate")
}

func TestKeepUnmatched(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"x7!", false},
		{"Mathematics", true},
		{"Abcd", false},
		{"ab-cd-ef", false},
		{"Sport 12345", false},
		{"Werken 1", true},
		{"Ästhetik", true},
		{"     ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeepUnmatched(tt.name))
		})
	}
}

func TestFilterNoise(t *testing.T) {
	m := New(DefaultConfig())
	cfg := &catalog.ScanConfig{Subjects: []catalog.Subject{
		{ID: "art", Name: "Art"},
		{ID: "german", Name: "Deutsch"},
	}}

	rows := m.Match([]parser.Row{
		{OriginalName: "Art", Grade: "A"},
		{OriginalName: "Mathematics", Grade: "B"},
		{OriginalName: "x7!", Grade: "C"},
		{OriginalName: "Ab", Grade: "3"},
	}, cfg)

	kept, dropped := FilterNoise(rows)
	require.Len(t, kept, 2)
	assert.Equal(t, "Art", kept[0].OriginalName)
	assert.Equal(t, "Mathematics", kept[1].OriginalName)
	assert.Equal(t, TierNone, kept[1].Confidence)

	require.Len(t, dropped, 2)
	assert.Equal(t, "x7!", dropped[0].OriginalName)
	assert.Equal(t, "Ab", dropped[1].OriginalName)
}
