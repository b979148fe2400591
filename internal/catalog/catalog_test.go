package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
categories:
  - id: core
    name: Core
subjects:
  - id: math
    name: Mathematik
    aliases: [Mathe, Mathematics]
    category: core
    core: true
  - id: german
    name: Deutsch
school_types:
  - country: DE
    keywords: [gymnasium, realschule]
locale:
  locale: de-DE
  country: DE
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, cfg.Subjects, 2)
	assert.Equal(t, []string{"Mathe", "Mathematics"}, cfg.Subjects[0].Aliases)
	assert.True(t, cfg.Subjects[0].Core)
	assert.Equal(t, "core", cfg.Subjects[0].CategoryID)
	require.Len(t, cfg.SchoolTypes, 1)
	assert.Equal(t, "DE", cfg.SchoolTypes[0].Country)
	assert.Equal(t, DefaultTermRules(), cfg.TermTypes)
	assert.Equal(t, "de-DE", cfg.Locale.Locale)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "subjects: [::"},
		{"no subjects", "categories: []"},
		{"missing id", "subjects:\n  - name: Deutsch\n"},
		{"duplicate id", "subjects:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"},
		{"unknown category", "categories: [{id: x, name: X}]\nsubjects:\n  - {id: a, name: A, category: y}\n"},
		{"rule without country", "subjects:\n  - {id: a, name: A}\nschool_types:\n  - keywords: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Subjects, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	math, ok := cfg.SubjectByID("math")
	require.True(t, ok)
	assert.Equal(t, "Mathematik", math.Name)
	assert.True(t, math.Core)

	_, ok = cfg.SubjectByID("astrology")
	assert.False(t, ok)

	names := cfg.SubjectNames()
	assert.Contains(t, names, "Deutsch")
	assert.Contains(t, names, "Physical Education")
}

func TestDefaultTermRules_HalfYearFirst(t *testing.T) {
	rules := DefaultTermRules()
	require.Len(t, rules, 2)
	assert.Equal(t, TermHalfYear, rules[0].Type)
	assert.Equal(t, TermFinal, rules[1].Type)
}
