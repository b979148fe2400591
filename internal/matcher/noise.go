package matcher

import (
	"strings"
	"unicode"
)

// KeepUnmatched reports whether an unmatched name looks like a real word worth keeping:
// at least 5 characters, a letter run of at least 5 and at least 60% letters.
func KeepUnmatched(name string) bool {
	chars := []rune(strings.TrimSpace(name))
	if len(chars) < 5 {
		return false
	}

	letters, run, longest := 0, 0, 0
	for _, r := range chars {
		if unicode.IsLetter(r) {
			letters++
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest >= 5 && float64(letters)/float64(len(chars)) >= 0.6
}

// FilterNoise keeps matched rows and plausible unmatched rows, returning the rest as dropped.
func FilterNoise(rows []Row) (kept, dropped []Row) {
	kept = make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Matched() || KeepUnmatched(r.OriginalName) {
			kept = append(kept, r)
			continue
		}
		dropped = append(dropped, r)
	}
	return kept, dropped
}
