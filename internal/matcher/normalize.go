package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a subject name for comparison: accents stripped, case folded,
// ß expanded, punctuation turned into spaces, whitespace collapsed.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "ß", "ss")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two normalized names in [0,1]. Plain edit similarity is lifted to a
// floor when one name abbreviates the other ("mathe" / "mathematik") or contains all of
// its words ("religion" / "evangelische religion").
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	score := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)

	short, long := a, b
	if la > lb {
		short, long = b, a
	}
	switch {
	case min(la, lb) >= 4 && strings.HasPrefix(long, short):
		score = max(score, prefixFloor)
	case containsWords(long, short):
		score = max(score, containmentFloor)
	}
	return score
}

const (
	prefixFloor      = 0.8
	containmentFloor = 0.75
)

func containsWords(long, short string) bool {
	have := make(map[string]bool)
	for _, w := range strings.Fields(long) {
		have[w] = true
	}
	words := strings.Fields(short)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if len(w) < 3 || !have[w] {
			return false
		}
	}
	return true
}
