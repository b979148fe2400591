// Package country suggests the country a report card was issued in from its vocabulary.
package country

import (
	"strings"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/parser"
)

// DefaultRules is the built-in keyword table. Order matters: the more specific
// Swiss and Austrian vocabulary is checked before the German one.
func DefaultRules() []catalog.KeywordRule {
	return []catalog.KeywordRule{
		{Country: "CH", Keywords: []string{"kanton", "primarschule", "bezirksschule", "kantonsschule", "schweiz"}},
		{Country: "AT", Keywords: []string{"bundesgymnasium", "bundesrealgymnasium", "neue mittelschule", "volksschule", "österreich", "schulnachricht"}},
		{Country: "DE", Keywords: []string{"gymnasium", "realschule", "gesamtschule", "grundschule", "hauptschule", "oberschule", "zeugnis", "jahrgangsstufe", "schuljahr"}},
		{Country: "NL", Keywords: []string{"basisschool", "leerling", "havo", "vwo", "vmbo", "rapport"}},
		{Country: "FR", Keywords: []string{"bulletin", "collège", "lycée", "trimestre", "appréciation", "élève"}},
		{Country: "GB", Keywords: []string{"key stage", "gcse", "form tutor", "academy trust", "headteacher"}},
		{Country: "US", Keywords: []string{"report card", "elementary school", "middle school", "high school", "gpa", "homeroom"}},
	}
}

// Detect returns the first rule whose keyword appears in the school name or the full text.
// An empty rules slice falls back to DefaultRules.
func Detect(meta parser.Metadata, text string, rules []catalog.KeywordRule) (string, bool) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	haystack := strings.ToLower(meta.SchoolName + "\n" + text)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				return strings.ToUpper(r.Country), true
			}
		}
	}
	return "", false
}
